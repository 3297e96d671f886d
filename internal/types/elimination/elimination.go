package elimination

import (
	"time"

	"github.com/google/uuid"
)

const ReasonGoalNotMet = "goal not met"

// Record is the audit entry written when a participant fails a weekly
// evaluation. It is the sole input of the rescue lookback and is deleted
// when a rescue reverses the elimination it records.
type Record struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ChallengeID uuid.UUID `json:"challenge_id" db:"challenge_id"`
	GuildID     string    `json:"guild_id" db:"guild_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	UserName    string    `json:"user_name" db:"user_name"`
	Stake       string    `json:"stake" db:"stake"`
	Goal        int       `json:"goal" db:"goal"`
	EndedAt     time.Time `json:"ended_at" db:"ended_at"`
	Reason      string    `json:"reason" db:"reason"`
	TotalWeeks  int       `json:"total_weeks" db:"total_weeks"`
}
