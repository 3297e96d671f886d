package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/types/elimination"
	"gymClashAPI/internal/types/outcome"
	"gymClashAPI/internal/week"
)

// boundary is Monday 2026-03-02 00:00 in the canonical zone: it opens ISO
// week 10 and judges week 9 (2026-02-23 .. 2026-03-01).
var boundary = time.Date(2026, 3, 2, 0, 0, 0, 0, week.Location)

const (
	judgedWeek = 9
	nowWeek    = 10
	isoYear    = 2026
)

type capturingNotifier struct {
	evaluations []*outcome.Evaluation
	reminders   []*outcome.Reminder
}

func (n *capturingNotifier) SendEvaluation(_ context.Context, ev *outcome.Evaluation) error {
	n.evaluations = append(n.evaluations, ev)
	return nil
}

func (n *capturingNotifier) SendReminder(_ context.Context, rem *outcome.Reminder) error {
	n.reminders = append(n.reminders, rem)
	return nil
}

type fixture struct {
	store    *storage.MemoryStore
	notifier *capturingNotifier
	eval     *EvaluationService
	rescue   *RescueService
}

func newFixture() *fixture {
	store := storage.NewMemoryStore()
	notifier := &capturingNotifier{}
	locks := NewChallengeLocker()
	return &fixture{
		store:    store,
		notifier: notifier,
		eval:     NewEvaluationService(store, locks, notifier),
		rescue:   NewRescueService(store, locks),
	}
}

// addChallenge seeds an active challenge whose stored week is the judged
// week, started on a Monday so no warm-up applies.
func (f *fixture) addChallenge(t *testing.T, guildID string) *challenge.Challenge {
	t.Helper()
	ch := &challenge.Challenge{
		GuildID:    guildID,
		ChannelID:  "chan-" + guildID,
		StartDate:  time.Date(2026, 2, 23, 0, 0, 0, 0, week.Location),
		IsActive:   true,
		WeekNumber: judgedWeek,
		WeekYear:   isoYear,
		TotalWeeks: 1,
	}
	require.NoError(t, f.store.CreateChallenge(context.Background(), ch))
	return ch
}

func (f *fixture) addMember(t *testing.T, ch *challenge.Challenge, userID string, goal int) *challenge.Participant {
	t.Helper()
	ctx := context.Background()
	prof, err := f.store.GetOrCreateProfile(ctx, userID, userID)
	require.NoError(t, err)
	prof.WeeklyGoal = goal
	require.NoError(t, f.store.UpdateProfile(ctx, prof))

	p := &challenge.Participant{
		ChallengeID: ch.ID,
		UserID:      userID,
		UserName:    userID,
		Stake:       "a beer",
	}
	require.NoError(t, f.store.AddParticipant(ctx, p))
	return p
}

func (f *fixture) addCheckins(t *testing.T, userID string, n int, kind checkin.SessionKind) {
	t.Helper()
	for i := 0; i < n; i++ {
		c := &checkin.Checkin{
			UserID:     userID,
			RecordedAt: time.Date(2026, 2, 23+i, 18, 0, 0, 0, week.Location),
			WeekNumber: judgedWeek,
			Year:       isoYear,
			Kind:       kind,
		}
		require.NoError(t, f.store.InsertCheckin(context.Background(), c))
	}
}

func TestRunBoundaryNoopOffBoundary(t *testing.T) {
	f := newFixture()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	// Tuesday is outside the evaluation window.
	require.NoError(t, f.eval.RunBoundary(context.Background(), boundary.Add(26*time.Hour)))

	got, err := f.store.GetChallenge(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, judgedWeek, got.WeekNumber)
	assert.Empty(t, f.notifier.evaluations)
}

func TestRunBoundaryAllPassed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	alice := f.addMember(t, ch, "alice", 2)
	bob := f.addMember(t, ch, "bob", 3)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 4, checkin.KindGym)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, nowWeek, got.WeekNumber)
	assert.Equal(t, 2, got.TotalWeeks)

	pa, err := f.store.GetParticipant(ctx, ch.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, pa.Streak)
	pb, err := f.store.GetParticipant(ctx, ch.ID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, pb.Streak)

	require.Len(t, f.notifier.evaluations, 1)
	ev := f.notifier.evaluations[0]
	assert.Equal(t, outcome.KindAllPassed, ev.Kind)
	assert.Empty(t, ev.Failed)
	assert.Len(t, ev.Survivors, 2)
}

func TestRunBoundaryEliminatesAndContinues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addMember(t, ch, "carol", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 3, checkin.KindGym)
	f.addCheckins(t, "carol", 1, checkin.KindGym)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	_, err := f.store.GetParticipant(ctx, ch.ID, "carol")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec, err := f.store.GetLatestElimination(ctx, "g1", "carol")
	require.NoError(t, err)
	assert.Equal(t, elimination.ReasonGoalNotMet, rec.Reason)
	assert.Equal(t, "a beer", rec.Stake)
	assert.Equal(t, 2, rec.Goal)
	assert.Equal(t, 1, rec.TotalWeeks)
	assert.True(t, rec.EndedAt.Equal(boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, nowWeek, got.WeekNumber)
	assert.Equal(t, 2, got.TotalWeeks)

	require.Len(t, f.notifier.evaluations, 1)
	assert.Equal(t, outcome.KindEliminations, f.notifier.evaluations[0].Kind)
}

func TestRunBoundaryEndsUnderStrength(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	// bob trained nothing

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	// Terminal: no advancement either.
	assert.Equal(t, judgedWeek, got.WeekNumber)
	assert.Equal(t, 1, got.TotalWeeks)

	require.Len(t, f.notifier.evaluations, 1)
	assert.Equal(t, outcome.KindEnded, f.notifier.evaluations[0].Kind)
}

func TestRunBoundaryFrozenSurvivesWithoutStreak(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	bob := f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	require.NoError(t, f.store.SetParticipantFrozen(ctx, ch.ID, "bob", true))
	require.NoError(t, f.store.SetParticipantStreak(ctx, bob.ID, 5))

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, nowWeek, got.WeekNumber)

	// The pause neither eliminates nor credits.
	pb, err := f.store.GetParticipant(ctx, ch.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 5, pb.Streak)
	require.Len(t, f.notifier.evaluations, 1)
	assert.Equal(t, outcome.KindAllPassed, f.notifier.evaluations[0].Kind)
}

func TestRunBoundaryCardioDoesNotCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 5, checkin.KindCardio)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	_, err := f.store.GetParticipant(ctx, ch.ID, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunBoundaryIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	alice := f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 2, checkin.KindGym)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))
	require.NoError(t, f.eval.RunBoundary(ctx, boundary.Add(30*time.Second)))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalWeeks)
	pa, err := f.store.GetParticipant(ctx, ch.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, pa.Streak)
	assert.Len(t, f.notifier.evaluations, 1)
}

func TestRunBoundarySkipsWarmupWeek(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// Created Wednesday of the judged week: that partial week is not judged.
	ch := &challenge.Challenge{
		GuildID:    "g1",
		ChannelID:  "chan",
		StartDate:  time.Date(2026, 2, 25, 15, 0, 0, 0, week.Location),
		IsActive:   true,
		WeekNumber: judgedWeek,
		WeekYear:   isoYear,
	}
	require.NoError(t, f.store.CreateChallenge(ctx, ch))
	f.addMember(t, ch, "alice", 5)
	f.addMember(t, ch, "bob", 5)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	// No advancement: the stored week lags so the next boundary judges the
	// first full week.
	assert.Equal(t, judgedWeek, got.WeekNumber)
	assert.Empty(t, f.notifier.evaluations)

	_, err = f.store.GetParticipant(ctx, ch.ID, "alice")
	assert.NoError(t, err)
}

func TestRunBoundaryJudgesAgainstGoalBeforePromotion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 2, checkin.KindGym)

	// Alice asked for a harder goal mid-week; it must not apply to the
	// week already lived.
	prof, err := f.store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	pending := 6
	prof.PendingGoal = &pending
	require.NoError(t, f.store.UpdateProfile(ctx, prof))

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	_, err = f.store.GetParticipant(ctx, ch.ID, "alice")
	assert.NoError(t, err)

	// And the pending goal is live for the week now starting.
	prof, err = f.store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 6, prof.WeeklyGoal)
	assert.Nil(t, prof.PendingGoal)
}

// faultStore wraps a Store and fails participant reads for one challenge,
// standing in for a transient database error.
type faultStore struct {
	storage.Store
	failID uuid.UUID
	fail   bool
}

var errStorageDown = errors.New("storage down")

func (s *faultStore) GetParticipants(ctx context.Context, challengeID uuid.UUID) ([]challenge.Participant, error) {
	if s.fail && challengeID == s.failID {
		return nil, errStorageDown
	}
	return s.Store.GetParticipants(ctx, challengeID)
}

func TestRunBoundaryFaultDoesNotStarveSiblings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	broken := f.addChallenge(t, "g1")
	f.addMember(t, broken, "alice", 2)
	f.addMember(t, broken, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 2, checkin.KindGym)
	healthy := f.addChallenge(t, "g2")
	f.addMember(t, healthy, "carol", 1)
	f.addMember(t, healthy, "dave", 1)
	f.addCheckins(t, "carol", 1, checkin.KindGym)
	f.addCheckins(t, "dave", 1, checkin.KindGym)

	fs := &faultStore{Store: f.store, failID: broken.ID, fail: true}
	eval := NewEvaluationService(fs, NewChallengeLocker(), f.notifier)

	require.NoError(t, eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, nowWeek, got.WeekNumber)

	got, err = f.store.GetChallenge(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, judgedWeek, got.WeekNumber)

	require.Len(t, f.notifier.evaluations, 1)
	assert.Equal(t, healthy.ID, f.notifier.evaluations[0].ChallengeID)
}

func TestRunBoundaryRetriesAfterFault(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addMember(t, ch, "carol", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 2, checkin.KindGym)
	// carol trained nothing and must still be judged once storage recovers.

	fs := &faultStore{Store: f.store, failID: ch.ID, fail: true}
	eval := NewEvaluationService(fs, NewChallengeLocker(), f.notifier)

	require.NoError(t, eval.RunBoundary(ctx, boundary))
	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, judgedWeek, got.WeekNumber)

	// A later tick the same Monday picks the challenge up again.
	fs.fail = false
	require.NoError(t, eval.RunBoundary(ctx, boundary.Add(9*time.Hour)))

	got, err = f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, nowWeek, got.WeekNumber)
	assert.Equal(t, 2, got.TotalWeeks)
	_, err = f.store.GetParticipant(ctx, ch.ID, "carol")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.Len(t, f.notifier.evaluations, 1)
	assert.Equal(t, outcome.KindEliminations, f.notifier.evaluations[0].Kind)
}

func TestRunBoundaryJudgesStaleWeekAcrossYears(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	// Same ISO week number a year earlier must not trip the
	// already-evaluated guard.
	ch := &challenge.Challenge{
		GuildID:    "g1",
		ChannelID:  "chan",
		StartDate:  time.Date(2025, 3, 3, 0, 0, 0, 0, week.Location),
		IsActive:   true,
		WeekNumber: nowWeek,
		WeekYear:   2025,
		TotalWeeks: 1,
	}
	require.NoError(t, f.store.CreateChallenge(ctx, ch))
	f.addMember(t, ch, "alice", 2)
	f.addMember(t, ch, "bob", 2)
	f.addCheckins(t, "alice", 2, checkin.KindGym)
	f.addCheckins(t, "bob", 2, checkin.KindGym)

	require.NoError(t, f.eval.RunBoundary(ctx, boundary))

	got, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, nowWeek, got.WeekNumber)
	assert.Equal(t, isoYear, got.WeekYear)
	assert.Equal(t, 2, got.TotalWeeks)
}

func TestSendRemindersListsOnlyBehind(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 3)
	f.addMember(t, ch, "bob", 3)
	f.addMember(t, ch, "carol", 3)
	require.NoError(t, f.store.SetParticipantFrozen(ctx, ch.ID, "carol", true))

	friday := time.Date(2026, 2, 27, 18, 0, 0, 0, week.Location)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.InsertCheckin(ctx, &checkin.Checkin{
			UserID:     "alice",
			RecordedAt: friday.AddDate(0, 0, -i),
			WeekNumber: judgedWeek,
			Year:       isoYear,
			Kind:       checkin.KindGym,
		}))
	}

	require.NoError(t, f.eval.SendReminders(ctx, friday))

	require.Len(t, f.notifier.reminders, 1)
	rem := f.notifier.reminders[0]
	require.Len(t, rem.Behind, 1)
	assert.Equal(t, "bob", rem.Behind[0].UserID)
	assert.Equal(t, 3, rem.Behind[0].Remaining)
	assert.Equal(t, 54, rem.HoursRemaining)
}

func TestSendRemindersNoopOffReminderDays(t *testing.T) {
	f := newFixture()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 3)

	wednesday := time.Date(2026, 2, 25, 18, 0, 0, 0, week.Location)
	require.NoError(t, f.eval.SendReminders(context.Background(), wednesday))
	assert.Empty(t, f.notifier.reminders)
}
