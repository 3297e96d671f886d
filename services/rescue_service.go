package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/types/outcome"
	"gymClashAPI/internal/types/profile"
	"gymClashAPI/internal/week"
	"gymClashAPI/middleware"
)

const rescueWindow = 24 * time.Hour

type RescueService struct {
	store storage.Store
	locks *ChallengeLocker
}

func NewRescueService(store storage.Store, locks *ChallengeLocker) *RescueService {
	return &RescueService{store: store, locks: locks}
}

// Rescue reverses a recent elimination when one supplementary check-in
// would have satisfied the judged week's goal. It consumes the elimination
// record on success; on an insufficient count it mutates nothing and
// reports the shortfall.
func (s *RescueService) Rescue(ctx context.Context, guildID, userID, userName, photoURL string, now time.Time) (*outcome.RescueResult, error) {
	rec, err := s.store.GetLatestElimination(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoElimination
		}
		return nil, fmt.Errorf("failed to look up elimination: %w", err)
	}

	if now.Sub(rec.EndedAt) > rescueWindow {
		return nil, ErrRescueTooLate
	}

	unlock := s.locks.Lock(rec.ChallengeID)
	defer unlock()

	ch, err := s.store.GetChallenge(ctx, rec.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if !ch.IsActive {
		// The whole challenge concluded; there is nothing to rejoin.
		return nil, ErrChallengeEnded
	}

	// The week being repaired is the week the elimination judged: the
	// boundary fires at Monday 00:00, so that is the week ending the
	// instant before EndedAt.
	judgedWeek, judgedYear := week.Evaluated(rec.EndedAt)

	// The bar is the goal the elimination judged. The profile's live goal
	// may already hold a pending change the same boundary promoted, and
	// that one belongs to the week now running.
	goal := rec.Goal
	if goal <= 0 {
		goal = profile.DefaultGoal
		if prof, err := s.store.GetProfile(ctx, userID); err == nil {
			goal = prof.WeeklyGoal
		}
	}

	count, err := s.store.GetWeeklyCheckinCount(ctx, userID, judgedWeek, judgedYear, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count checkins: %w", err)
	}
	newCount := count + 1

	if newCount < goal {
		middleware.CountRescue(false)
		return &outcome.RescueResult{
			Reinstated: false,
			NewCount:   newCount,
			Goal:       goal,
			Shortfall:  goal - newCount,
		}, nil
	}

	c := &checkin.Checkin{
		UserID:     userID,
		RecordedAt: now,
		WeekNumber: judgedWeek,
		Year:       judgedYear,
		PhotoURL:   photoURL,
		Note:       "[RESCUE]",
		Kind:       checkin.KindGym,
	}
	if err := s.store.InsertCheckin(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to insert rescue checkin: %w", err)
	}

	p := &challenge.Participant{
		ChallengeID: rec.ChallengeID,
		UserID:      userID,
		UserName:    userName,
		Stake:       rec.Stake,
		IsFrozen:    false,
		Streak:      0,
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to reinstate participant: %w", err)
	}

	if err := s.store.DeleteElimination(ctx, rec.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to consume elimination record: %w", err)
	}

	participants, err := s.store.GetParticipants(ctx, rec.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	statuses := make([]challenge.ParticipantStatus, 0, len(participants))
	for _, part := range participants {
		pGoal := profile.DefaultGoal
		if prof, err := s.store.GetProfile(ctx, part.UserID); err == nil {
			pGoal = prof.WeeklyGoal
		}
		pCount, err := s.store.GetWeeklyCheckinCount(ctx, part.UserID, judgedWeek, judgedYear, true)
		if err != nil {
			return nil, fmt.Errorf("failed to count checkins: %w", err)
		}
		statuses = append(statuses, challenge.ParticipantStatus{
			UserID:   part.UserID,
			UserName: part.UserName,
			Count:    pCount,
			Goal:     pGoal,
			Streak:   part.Streak,
			IsFrozen: part.IsFrozen,
		})
	}

	middleware.CountRescue(true)
	return &outcome.RescueResult{
		Reinstated:   true,
		NewCount:     newCount,
		Goal:         goal,
		Participants: statuses,
	}, nil
}
