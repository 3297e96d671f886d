package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/week"
)

func newCheckinFixture(t *testing.T) (*fixture, *CheckinService) {
	t.Helper()
	f := newFixture()
	return f, NewCheckinService(f.store)
}

func TestCheckInCountsAndValidates(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	wednesday := time.Date(2026, 2, 25, 18, 30, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1", PhotoURL: "http://proof.jpg"}

	res, err := svc.CheckIn(ctx, "alice", "alice", req, wednesday)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 2, res.Goal)
	assert.False(t, res.Validated)
	assert.Equal(t, 4, res.DaysRemaining)
	assert.Equal(t, checkin.KindGym, res.Checkin.Kind)
	assert.Equal(t, judgedWeek, res.Checkin.WeekNumber)

	res, err = svc.CheckIn(ctx, "alice", "alice", req, wednesday.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.True(t, res.Validated)
}

func TestCheckInRequiresActiveChallenge(t *testing.T) {
	_, svc := newCheckinFixture(t)
	req := &checkin.CreateCheckinRequest{GuildID: "g1"}
	_, err := svc.CheckIn(context.Background(), "alice", "alice", req, boundary)
	assert.ErrorIs(t, err, ErrNoActiveChallenge)
}

func TestCheckInCardioTrackedButNotCounted(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	wednesday := time.Date(2026, 2, 25, 18, 30, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1", Kind: checkin.KindCardio}

	res, err := svc.CheckIn(ctx, "alice", "alice", req, wednesday)
	require.NoError(t, err)
	assert.Equal(t, checkin.KindCardio, res.Checkin.Kind)
	assert.Equal(t, 0, res.Count)

	// Still visible in the week listing.
	listed, err := svc.WeekCheckins(ctx, "alice", wednesday)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestLateCheckInSameWeek(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	wednesday := time.Date(2026, 2, 25, 9, 0, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1", Note: "leg day"}

	res, err := svc.LateCheckIn(ctx, "alice", "alice", req, wednesday)
	require.NoError(t, err)
	assert.Equal(t, "[YESTERDAY] leg day", res.Checkin.Note)
	want := time.Date(2026, 2, 24, 20, 0, 0, 0, week.Location)
	assert.True(t, res.Checkin.RecordedAt.Equal(want))
	assert.Equal(t, judgedWeek, res.Checkin.WeekNumber)
}

func TestLateCheckInClosedAcrossBoundary(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	// Monday: yesterday is last week, the boundary already judged it.
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1"}
	_, err := svc.LateCheckIn(context.Background(), "alice", "alice", req, monday)
	assert.ErrorIs(t, err, ErrLateWindowClosed)
}

func TestCheckInForTagsRecorder(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	wednesday := time.Date(2026, 2, 25, 18, 0, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1"}
	res, err := svc.CheckInFor(context.Background(), "alice", "alice", "bob", req, wednesday)
	require.NoError(t, err)
	assert.Equal(t, "[BY bob]", res.Checkin.Note)
	assert.Equal(t, "alice", res.Checkin.UserID)
	assert.Equal(t, 1, res.Count)
}

func TestCheckInCrossPostsOtherGuilds(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch1 := f.addChallenge(t, "g1")
	ch2 := f.addChallenge(t, "g2")
	f.addMember(t, ch1, "alice", 2)
	f.addMember(t, ch2, "alice", 2)
	require.NoError(t, f.store.SetCheckinChannel(ctx, ch2.ID, "gym-pics"))

	wednesday := time.Date(2026, 2, 25, 18, 0, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1"}
	res, err := svc.CheckIn(ctx, "alice", "alice", req, wednesday)
	require.NoError(t, err)
	require.Len(t, res.CrossPosts, 1)
	assert.Equal(t, "g2", res.CrossPosts[0].GuildID)
	assert.Equal(t, "gym-pics", res.CrossPosts[0].ChannelID)
}

func TestDeleteCheckinOwnerOnly(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	wednesday := time.Date(2026, 2, 25, 18, 0, 0, 0, week.Location)
	req := &checkin.CreateCheckinRequest{GuildID: "g1"}
	res, err := svc.CheckIn(ctx, "alice", "alice", req, wednesday)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, res.Checkin.ID, "bob"), storage.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, res.Checkin.ID, "alice"))

	count, err := f.store.GetWeeklyCheckinCount(ctx, "alice", judgedWeek, isoYear, true)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCalendarAggregatesPerDay(t *testing.T) {
	f, svc := newCheckinFixture(t)
	ctx := context.Background()
	ch := f.addChallenge(t, "g1")
	f.addMember(t, ch, "alice", 2)

	day := time.Date(2026, 2, 25, 10, 0, 0, 0, week.Location)
	for _, c := range []checkin.Checkin{
		{UserID: "alice", RecordedAt: day, WeekNumber: judgedWeek, Year: isoYear, Kind: checkin.KindGym},
		{UserID: "alice", RecordedAt: day.Add(8 * time.Hour), WeekNumber: judgedWeek, Year: isoYear, Kind: checkin.KindCardio},
		{UserID: "alice", RecordedAt: day.AddDate(0, 0, 1), WeekNumber: judgedWeek, Year: isoYear, Kind: checkin.KindGym},
	} {
		cc := c
		require.NoError(t, f.store.InsertCheckin(ctx, &cc))
	}

	days, err := svc.Calendar(ctx, "alice", day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-02-25", days[0].Date)
	assert.Equal(t, 2, days[0].Checks)
	assert.ElementsMatch(t, []checkin.SessionKind{checkin.KindGym, checkin.KindCardio}, days[0].Kinds)
	assert.Equal(t, "2026-02-26", days[1].Date)
	assert.Equal(t, 1, days[1].Checks)
}
