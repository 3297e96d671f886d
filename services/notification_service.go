package services

import (
	"context"
	"fmt"
	"log"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/notification"
	"gymClashAPI/internal/types/outcome"
)

// PushProvider delivers one push message to a set of device tokens.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationService turns engine outcomes into push deliveries. All
// human-facing text lives here, never in the engines.
type NotificationService struct {
	store        storage.Store
	pushProvider PushProvider
}

func NewNotificationService(store storage.Store) *NotificationService {
	return &NotificationService{store: store}
}

// SetPushProvider injects the provider once it is available; without one
// the service degrades to a no-op.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	t := &notification.DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	}
	return s.store.SaveDeviceToken(ctx, t)
}

// SendEvaluation pushes the weekly verdict to everyone the verdict names,
// eliminated participants included.
func (s *NotificationService) SendEvaluation(ctx context.Context, ev *outcome.Evaluation) error {
	if s.pushProvider == nil {
		return nil
	}

	var title string
	switch ev.Kind {
	case outcome.KindAllPassed:
		title = "Week validated, everyone made it"
	case outcome.KindEliminations:
		title = "Elimination: the challenge continues"
	case outcome.KindEnded:
		title = "Game over: the challenge has ended"
	}

	data := map[string]any{
		"challenge_id": ev.ChallengeID.String(),
		"guild_id":     ev.GuildID,
		"channel_id":   ev.ChannelID,
		"kind":         string(ev.Kind),
	}

	var firstErr error
	notify := func(userID, body string) {
		tokens, err := s.store.GetDeviceTokens(ctx, userID)
		if err != nil {
			log.Printf("SendEvaluation: failed to load tokens for %s: %v", userID, err)
			return
		}
		if err := s.pushProvider.SendPush(ctx, tokens, title, body, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, f := range ev.Failed {
		notify(f.UserID, fmt.Sprintf("%d/%d sessions — your stake is due: %s", f.Count, f.Goal, f.Stake))
	}
	for _, sv := range ev.Survivors {
		notify(sv.UserID, fmt.Sprintf("%d/%d sessions — week %d", sv.Count, sv.Goal, ev.ChallengeWeek))
	}
	return firstErr
}

// SendReminder nudges the participants still short of goal.
func (s *NotificationService) SendReminder(ctx context.Context, rem *outcome.Reminder) error {
	if s.pushProvider == nil {
		return nil
	}

	data := map[string]any{
		"challenge_id": rem.ChallengeID.String(),
		"guild_id":     rem.GuildID,
		"channel_id":   rem.ChannelID,
	}

	var firstErr error
	for _, b := range rem.Behind {
		tokens, err := s.store.GetDeviceTokens(ctx, b.UserID)
		if err != nil {
			log.Printf("SendReminder: failed to load tokens for %s: %v", b.UserID, err)
			continue
		}
		body := fmt.Sprintf("%d session(s) left, %d hour(s) to go", b.Remaining, rem.HoursRemaining)
		if err := s.pushProvider.SendPush(ctx, tokens, "Weekly goal reminder", body, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
