package checkin

import (
	"time"

	"github.com/google/uuid"
)

type SessionKind string

const (
	KindGym    SessionKind = "gym"
	KindCardio SessionKind = "cardio"
)

// Checkin is an immutable proof-of-activity fact, global to the user and
// tagged with the ISO week it was recorded for. Only gym sessions count
// toward the weekly goal; cardio is tracked but excluded.
type Checkin struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	UserID     string      `json:"user_id" db:"user_id"`
	RecordedAt time.Time   `json:"recorded_at" db:"recorded_at"`
	WeekNumber int         `json:"week_number" db:"week_number"`
	Year       int         `json:"year" db:"year"`
	PhotoURL   string      `json:"photo_url,omitempty" db:"photo_url"`
	Note       string      `json:"note,omitempty" db:"note"`
	Kind       SessionKind `json:"session_kind" db:"session_kind"`
}

type CreateCheckinRequest struct {
	GuildID  string      `json:"guild_id"`
	PhotoURL string      `json:"photo_url"`
	Kind     SessionKind `json:"session_kind,omitempty"`
	Note     string      `json:"note,omitempty"`
}

// CrossPost names a channel on another guild that should receive a copy of
// the check-in announcement.
type CrossPost struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

type CheckinResult struct {
	Checkin       *Checkin    `json:"checkin"`
	Count         int         `json:"count"`
	Goal          int         `json:"goal"`
	Validated     bool        `json:"validated"`
	DaysRemaining int         `json:"days_remaining"`
	CrossPosts    []CrossPost `json:"cross_posts,omitempty"`
}

// CalendarDay aggregates one day of the 30-day personal calendar.
type CalendarDay struct {
	Date   string        `json:"date"`
	Kinds  []SessionKind `json:"kinds"`
	Checks int           `json:"checks"`
}
