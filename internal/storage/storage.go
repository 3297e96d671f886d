// Package storage is the persistence gateway for the challenge core. The
// engines only see the Store interface; Postgres is the production backend
// and MemoryStore backs the engine tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/types/elimination"
	"gymClashAPI/internal/types/notification"
	"gymClashAPI/internal/types/profile"
)

// ErrNotFound is returned when a requested row does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("not found")

type Store interface {
	// Profiles.
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
	GetOrCreateProfile(ctx context.Context, userID, userName string) (*profile.Profile, error)
	UpdateProfile(ctx context.Context, p *profile.Profile) error
	// PromotePendingGoals moves every non-null pending goal into the live
	// goal and clears it, returning the number of profiles touched.
	PromotePendingGoals(ctx context.Context) (int, error)

	// Challenges.
	CreateChallenge(ctx context.Context, c *challenge.Challenge) error
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	GetActiveChallenge(ctx context.Context, guildID string) (*challenge.Challenge, error)
	GetAllActiveChallenges(ctx context.Context) ([]challenge.Challenge, error)
	GetUserActiveChallenges(ctx context.Context, userID string) ([]challenge.Challenge, error)
	SetChallengeActive(ctx context.Context, id uuid.UUID, active bool) error
	SetCheckinChannel(ctx context.Context, id uuid.UUID, channelID string) error
	AdvanceChallengeWeek(ctx context.Context, id uuid.UUID, totalWeeks, weekNumber, weekYear int) error

	// Participants.
	GetParticipants(ctx context.Context, challengeID uuid.UUID) ([]challenge.Participant, error)
	GetParticipant(ctx context.Context, challengeID uuid.UUID, userID string) (*challenge.Participant, error)
	AddParticipant(ctx context.Context, p *challenge.Participant) error
	RemoveParticipant(ctx context.Context, challengeID uuid.UUID, userID string) error
	SetParticipantFrozen(ctx context.Context, challengeID uuid.UUID, userID string, frozen bool) error
	SetParticipantStreak(ctx context.Context, participantID uuid.UUID, streak int) error

	// Checkins.
	InsertCheckin(ctx context.Context, c *checkin.Checkin) error
	DeleteCheckin(ctx context.Context, id uuid.UUID, ownerID string) error
	GetWeeklyCheckinCount(ctx context.Context, userID string, weekNumber, year int, gymOnly bool) (int, error)
	GetTotalCheckinCount(ctx context.Context, userID string) (int, error)
	GetWeekCheckins(ctx context.Context, userID string, weekNumber, year int) ([]checkin.Checkin, error)
	GetCheckinsSince(ctx context.Context, userID string, since time.Time) ([]checkin.Checkin, error)

	// Elimination log.
	InsertElimination(ctx context.Context, r *elimination.Record) error
	GetLatestElimination(ctx context.Context, guildID, userID string) (*elimination.Record, error)
	DeleteElimination(ctx context.Context, id uuid.UUID) error

	// Push targets.
	SaveDeviceToken(ctx context.Context, t *notification.DeviceToken) error
	GetDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
}
