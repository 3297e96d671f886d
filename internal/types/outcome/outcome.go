package outcome

import (
	"github.com/google/uuid"

	"gymClashAPI/internal/types/challenge"
)

type Kind string

const (
	// KindAllPassed: nobody failed, the challenge advances a week.
	KindAllPassed Kind = "all_passed"
	// KindEliminations: at least one failure but >= 2 survivors remain.
	KindEliminations Kind = "eliminations"
	// KindEnded: failures left fewer than 2 participants, terminal.
	KindEnded Kind = "ended"
)

// Evaluation is the data contract handed to the rendering/notification
// collaborators after one challenge's weekly verdict. It carries no
// human-facing text.
type Evaluation struct {
	ChallengeID   uuid.UUID                     `json:"challenge_id"`
	GuildID       string                        `json:"guild_id"`
	ChannelID     string                        `json:"channel_id"`
	Kind          Kind                          `json:"kind"`
	ChallengeWeek int                           `json:"challenge_week"`
	Failed        []challenge.ParticipantStatus `json:"failed,omitempty"`
	Survivors     []challenge.ParticipantStatus `json:"survivors"`
}

// Reminder lists the participants of one challenge still short of goal.
type Reminder struct {
	ChallengeID    uuid.UUID           `json:"challenge_id"`
	GuildID        string              `json:"guild_id"`
	ChannelID      string              `json:"channel_id"`
	HoursRemaining int                 `json:"hours_remaining"`
	Behind         []BehindParticipant `json:"behind"`
}

type BehindParticipant struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Remaining int    `json:"remaining"`
}

// RescueResult reports the outcome of a rescue attempt whose preconditions
// held. Reinstated false means the extra check-in still left the user short.
type RescueResult struct {
	Reinstated   bool                          `json:"reinstated"`
	NewCount     int                           `json:"new_count"`
	Goal         int                           `json:"goal"`
	Shortfall    int                           `json:"shortfall,omitempty"`
	Participants []challenge.ParticipantStatus `json:"participants,omitempty"`
}
