package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/notification"
	"gymClashAPI/internal/types/outcome"
)

type push struct {
	tokens []notification.DeviceToken
	title  string
	body   string
	data   map[string]any
}

type fakePushProvider struct {
	pushes []push
}

func (p *fakePushProvider) SendPush(_ context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	p.pushes = append(p.pushes, push{tokens, title, body, data})
	return nil
}

func TestRegisterDeviceUpserts(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store)
	ctx := context.Background()

	req := &notification.RegisterDeviceRequest{Token: "tok-1", Platform: "android"}
	require.NoError(t, svc.RegisterDevice(ctx, "alice", req))
	require.NoError(t, svc.RegisterDevice(ctx, "alice", req))

	tokens, err := store.GetDeviceTokens(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestSendEvaluationPushesFailedAndSurvivors(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store)
	provider := &fakePushProvider{}
	svc.SetPushProvider(provider)
	ctx := context.Background()

	require.NoError(t, svc.RegisterDevice(ctx, "alice", &notification.RegisterDeviceRequest{Token: "tok-a", Platform: "ios"}))
	require.NoError(t, svc.RegisterDevice(ctx, "carol", &notification.RegisterDeviceRequest{Token: "tok-c", Platform: "android"}))

	ev := &outcome.Evaluation{
		GuildID:       "g1",
		Kind:          outcome.KindEliminations,
		ChallengeWeek: 3,
		Failed: []challenge.ParticipantStatus{
			{UserID: "carol", UserName: "carol", Count: 1, Goal: 3, Stake: "a beer"},
		},
		Survivors: []challenge.ParticipantStatus{
			{UserID: "alice", UserName: "alice", Count: 2, Goal: 2},
		},
	}
	require.NoError(t, svc.SendEvaluation(ctx, ev))

	require.Len(t, provider.pushes, 2)
	assert.Equal(t, "tok-c", provider.pushes[0].tokens[0].Token)
	assert.Contains(t, provider.pushes[0].body, "a beer")
	assert.Equal(t, "tok-a", provider.pushes[1].tokens[0].Token)
	assert.Equal(t, "Elimination: the challenge continues", provider.pushes[1].title)
	assert.Equal(t, "eliminations", provider.pushes[1].data["kind"])
}

func TestSendEvaluationNoProviderIsNoop(t *testing.T) {
	svc := NewNotificationService(storage.NewMemoryStore())
	ev := &outcome.Evaluation{Kind: outcome.KindAllPassed}
	assert.NoError(t, svc.SendEvaluation(context.Background(), ev))
}

func TestSendReminderPushesEachBehind(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store)
	provider := &fakePushProvider{}
	svc.SetPushProvider(provider)
	ctx := context.Background()

	require.NoError(t, svc.RegisterDevice(ctx, "bob", &notification.RegisterDeviceRequest{Token: "tok-b", Platform: "android"}))

	rem := &outcome.Reminder{
		GuildID:        "g1",
		HoursRemaining: 54,
		Behind: []outcome.BehindParticipant{
			{UserID: "bob", UserName: "bob", Remaining: 2},
		},
	}
	require.NoError(t, svc.SendReminder(ctx, rem))

	require.Len(t, provider.pushes, 1)
	assert.Contains(t, provider.pushes[0].body, "2 session(s)")
	assert.Contains(t, provider.pushes[0].body, "54 hour(s)")
}
