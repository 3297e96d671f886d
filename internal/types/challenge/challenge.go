package challenge

import (
	"time"

	"github.com/google/uuid"
)

// Challenge is one guild's active commitment. WeekNumber and WeekYear hold
// the ISO week at creation and advance at every evaluated boundary;
// TotalWeeks counts the weeks the group survived as a whole.
type Challenge struct {
	ID               uuid.UUID `json:"id" db:"id"`
	GuildID          string    `json:"guild_id" db:"guild_id"`
	ChannelID        string    `json:"channel_id" db:"channel_id"`
	CheckinChannelID string    `json:"checkin_channel_id" db:"checkin_channel_id"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	WeekNumber       int       `json:"week_number" db:"week_number"`
	WeekYear         int       `json:"week_year" db:"week_year"`
	TotalWeeks       int       `json:"total_weeks" db:"total_weeks"`
}

// Participant is one user's membership in one challenge. Removed outright
// on elimination, no soft delete.
type Participant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ChallengeID uuid.UUID `json:"challenge_id" db:"challenge_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	UserName    string    `json:"user_name" db:"user_name"`
	Stake       string    `json:"stake" db:"stake"`
	IsFrozen    bool      `json:"is_frozen" db:"is_frozen"`
	Streak      int       `json:"streak" db:"streak"`
}

type Member struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type SetupRequest struct {
	GuildID       string `json:"guild_id"`
	ChannelID     string `json:"channel_id"`
	Opponent      Member `json:"opponent"`
	CreatorStake  string `json:"creator_stake"`
	OpponentStake string `json:"opponent_stake"`
	OpponentGoal  *int   `json:"opponent_goal,omitempty"`
}

type AddPlayerRequest struct {
	GuildID string `json:"guild_id"`
	Player  Member `json:"player"`
	Stake   string `json:"stake"`
	Goal    *int   `json:"goal,omitempty"`
}

// ParticipantStatus is a participant row joined with the live weekly score.
type ParticipantStatus struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Count    int    `json:"count"`
	Goal     int    `json:"goal"`
	Streak   int    `json:"streak"`
	IsFrozen bool   `json:"is_frozen"`
	Stake    string `json:"stake,omitempty"`
}

type Stats struct {
	Challenge     *Challenge          `json:"challenge"`
	ChallengeWeek int                 `json:"challenge_week"`
	DaysRemaining int                 `json:"days_remaining"`
	WarmupWeek    bool                `json:"warmup_week"`
	Participants  []ParticipantStatus `json:"participants"`
	Leader        *ParticipantStatus  `json:"leader,omitempty"`
	AllValidated  bool                `json:"all_validated"`
}
