package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/week"
)

type CheckinService struct {
	store storage.Store
}

func NewCheckinService(store storage.Store) *CheckinService {
	return &CheckinService{store: store}
}

// CheckIn records a session for the current week. The caller must be in at
// least one active challenge; the check-in itself is global to the user
// and counts on every guild at once.
func (s *CheckinService) CheckIn(ctx context.Context, userID, userName string, req *checkin.CreateCheckinRequest, now time.Time) (*checkin.CheckinResult, error) {
	return s.record(ctx, userID, userName, req.GuildID, req.PhotoURL, req.Kind, req.Note, now, now)
}

// LateCheckIn records yesterday's forgotten session, timestamped 20:00
// yesterday. It only works while yesterday is still part of the current
// ISO week; past the boundary the rescue flow is the only way back.
func (s *CheckinService) LateCheckIn(ctx context.Context, userID, userName string, req *checkin.CreateCheckinRequest, now time.Time) (*checkin.CheckinResult, error) {
	local := now.In(week.Location)
	yesterday := local.AddDate(0, 0, -1)

	yw, yy := week.Of(yesterday)
	tw, ty := week.Of(local)
	if yw != tw || yy != ty {
		return nil, ErrLateWindowClosed
	}

	recordedAt := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 20, 0, 0, 0, week.Location)
	note := "[YESTERDAY]"
	if req.Note != "" {
		note = note + " " + req.Note
	}
	return s.record(ctx, userID, userName, req.GuildID, req.PhotoURL, req.Kind, note, now, recordedAt)
}

// CheckInFor records a session on behalf of another user, tagged with the
// recorder's name.
func (s *CheckinService) CheckInFor(ctx context.Context, targetID, targetName, byName string, req *checkin.CreateCheckinRequest, now time.Time) (*checkin.CheckinResult, error) {
	note := "[BY " + byName + "]"
	if req.Note != "" {
		note = note + " " + req.Note
	}
	return s.record(ctx, targetID, targetName, req.GuildID, req.PhotoURL, req.Kind, note, now, now)
}

func (s *CheckinService) record(ctx context.Context, userID, userName, guildID, photoURL string, kind checkin.SessionKind, note string, now, recordedAt time.Time) (*checkin.CheckinResult, error) {
	active, err := s.store.GetUserActiveChallenges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenges: %w", err)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveChallenge
	}

	prof, err := s.store.GetOrCreateProfile(ctx, userID, userName)
	if err != nil {
		return nil, err
	}

	if kind == "" {
		kind = checkin.KindGym
	}
	weekNumber, year := week.Of(recordedAt)
	c := &checkin.Checkin{
		UserID:     userID,
		RecordedAt: recordedAt,
		WeekNumber: weekNumber,
		Year:       year,
		PhotoURL:   photoURL,
		Note:       note,
		Kind:       kind,
	}
	if err := s.store.InsertCheckin(ctx, c); err != nil {
		return nil, err
	}

	count, err := s.store.GetWeeklyCheckinCount(ctx, userID, weekNumber, year, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count checkins: %w", err)
	}

	// Channels on the user's other guilds that should echo this check-in.
	var crossPosts []checkin.CrossPost
	for _, ch := range active {
		if ch.GuildID == guildID {
			continue
		}
		channelID := ch.CheckinChannelID
		if channelID == "" {
			channelID = ch.ChannelID
		}
		crossPosts = append(crossPosts, checkin.CrossPost{GuildID: ch.GuildID, ChannelID: channelID})
	}

	return &checkin.CheckinResult{
		Checkin:       c,
		Count:         count,
		Goal:          prof.WeeklyGoal,
		Validated:     count >= prof.WeeklyGoal,
		DaysRemaining: week.DaysRemaining(now),
		CrossPosts:    crossPosts,
	}, nil
}

// Delete removes one of the caller's own check-ins by id.
func (s *CheckinService) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	return s.store.DeleteCheckin(ctx, id, ownerID)
}

// WeekCheckins lists the caller's check-ins of the current week.
func (s *CheckinService) WeekCheckins(ctx context.Context, userID string, now time.Time) ([]checkin.Checkin, error) {
	weekNumber, year := week.Of(now)
	return s.store.GetWeekCheckins(ctx, userID, weekNumber, year)
}

// Calendar aggregates the last 30 days of a user's check-ins per day.
func (s *CheckinService) Calendar(ctx context.Context, userID string, now time.Time) ([]checkin.CalendarDay, error) {
	since := now.In(week.Location).AddDate(0, 0, -30)
	checkins, err := s.store.GetCheckinsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*checkin.CalendarDay)
	var order []string
	for _, c := range checkins {
		day := c.RecordedAt.In(week.Location).Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &checkin.CalendarDay{Date: day}
			byDay[day] = entry
			order = append(order, day)
		}
		entry.Checks++
		entry.Kinds = append(entry.Kinds, c.Kind)
	}

	out := make([]checkin.CalendarDay, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out, nil
}
