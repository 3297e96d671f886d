package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/elimination"
	"gymClashAPI/internal/types/outcome"
	"gymClashAPI/internal/types/profile"
	"gymClashAPI/internal/week"
	"gymClashAPI/middleware"
)

// BoundaryNotifier receives evaluation and reminder payloads. Delivery is a
// side effect: its failure is logged and never rolls back a state
// transition.
type BoundaryNotifier interface {
	SendEvaluation(ctx context.Context, ev *outcome.Evaluation) error
	SendReminder(ctx context.Context, rem *outcome.Reminder) error
}

type EvaluationService struct {
	store    storage.Store
	locks    *ChallengeLocker
	notifier BoundaryNotifier
}

func NewEvaluationService(store storage.Store, locks *ChallengeLocker, notifier BoundaryNotifier) *EvaluationService {
	return &EvaluationService{store: store, locks: locks, notifier: notifier}
}

// RunBoundary is the weekly-boundary entry point. It is driven by a coarse
// once-a-minute tick and no-ops unless the tick lands on Monday in the
// canonical time zone; every Monday tick retries any challenge an earlier
// tick failed to judge, relying on the stored-week guard to skip the rest.
// Goals are snapshotted before pending goals are promoted, so the week
// being judged is always judged against the goal that was in effect
// during it.
func (s *EvaluationService) RunBoundary(ctx context.Context, now time.Time) error {
	if !week.IsBoundary(now) {
		return nil
	}

	challenges, err := s.store.GetAllActiveChallenges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active challenges: %w", err)
	}

	goals := s.snapshotGoals(ctx, challenges)

	if n, err := s.store.PromotePendingGoals(ctx); err != nil {
		log.Printf("RunBoundary: failed to promote pending goals: %v", err)
	} else if n > 0 {
		log.Printf("RunBoundary: promoted %d pending goal(s)", n)
	}

	evalWeek, evalYear := week.Evaluated(now)
	currentWeek, currentYear := week.Of(now)

	for i := range challenges {
		ch := &challenges[i]
		ev, err := s.evaluateChallenge(ctx, ch, goals, evalWeek, evalYear, currentWeek, currentYear, now)
		if err != nil {
			// One broken challenge must not starve its siblings.
			log.Printf("RunBoundary: evaluation failed for challenge %s: %v", ch.ID, err)
			continue
		}
		if ev == nil {
			continue
		}
		middleware.CountEvaluation(string(ev.Kind), len(ev.Failed))
		if s.notifier != nil {
			if err := s.notifier.SendEvaluation(ctx, ev); err != nil {
				log.Printf("RunBoundary: notify failed for challenge %s: %v", ch.ID, err)
			}
		}
	}
	return nil
}

// snapshotGoals reads every active participant's live goal before pending
// promotion runs.
func (s *EvaluationService) snapshotGoals(ctx context.Context, challenges []challenge.Challenge) map[string]int {
	goals := make(map[string]int)
	for _, ch := range challenges {
		participants, err := s.store.GetParticipants(ctx, ch.ID)
		if err != nil {
			log.Printf("snapshotGoals: failed to load participants for %s: %v", ch.ID, err)
			continue
		}
		for _, p := range participants {
			if _, ok := goals[p.UserID]; ok {
				continue
			}
			prof, err := s.store.GetProfile(ctx, p.UserID)
			if err != nil {
				goals[p.UserID] = profile.DefaultGoal
				continue
			}
			goals[p.UserID] = prof.WeeklyGoal
		}
	}
	return goals
}

func (s *EvaluationService) evaluateChallenge(ctx context.Context, ch *challenge.Challenge, goals map[string]int, evalWeek, evalYear, currentWeek, currentYear int, now time.Time) (*outcome.Evaluation, error) {
	unlock := s.locks.Lock(ch.ID)
	defer unlock()

	// Already advanced into the week now starting: a second firing of the
	// same boundary, or a challenge created after it. Either way nothing
	// to judge.
	if ch.WeekNumber == currentWeek && ch.WeekYear == currentYear {
		return nil, nil
	}

	// A partial first week is never judged; the first full week is.
	if week.IsWarmup(ch.WeekNumber, ch.WeekYear, ch.StartDate, evalWeek, evalYear) {
		return nil, nil
	}

	participants, err := s.store.GetParticipants(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, nil
	}

	var failed, survivors []challenge.ParticipantStatus
	for _, p := range participants {
		goal, ok := goals[p.UserID]
		if !ok {
			goal = profile.DefaultGoal
		}
		count, err := s.store.GetWeeklyCheckinCount(ctx, p.UserID, evalWeek, evalYear, true)
		if err != nil {
			return nil, err
		}

		st := challenge.ParticipantStatus{
			UserID:   p.UserID,
			UserName: p.UserName,
			Count:    count,
			Goal:     goal,
			Streak:   p.Streak,
			IsFrozen: p.IsFrozen,
			Stake:    p.Stake,
		}

		switch {
		case p.IsFrozen:
			// Freeze is a pause, not a success: passes, no streak credit.
			survivors = append(survivors, st)
		case count >= goal:
			st.Streak = p.Streak + 1
			if err := s.store.SetParticipantStreak(ctx, p.ID, st.Streak); err != nil {
				return nil, err
			}
			survivors = append(survivors, st)
		default:
			failed = append(failed, st)
		}
	}

	ev := &outcome.Evaluation{
		ChallengeID:   ch.ID,
		GuildID:       ch.GuildID,
		ChannelID:     ch.ChannelID,
		ChallengeWeek: week.ChallengeWeek(ch.StartDate, now),
		Failed:        failed,
		Survivors:     survivors,
	}

	if len(failed) == 0 {
		if err := s.store.AdvanceChallengeWeek(ctx, ch.ID, ch.TotalWeeks+1, currentWeek, currentYear); err != nil {
			return nil, err
		}
		ev.Kind = outcome.KindAllPassed
		return ev, nil
	}

	for _, f := range failed {
		if err := s.store.RemoveParticipant(ctx, ch.ID, f.UserID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		rec := &elimination.Record{
			ChallengeID: ch.ID,
			GuildID:     ch.GuildID,
			UserID:      f.UserID,
			UserName:    f.UserName,
			Stake:       f.Stake,
			Goal:        f.Goal,
			EndedAt:     now,
			Reason:      elimination.ReasonGoalNotMet,
			TotalWeeks:  ch.TotalWeeks,
		}
		if err := s.store.InsertElimination(ctx, rec); err != nil {
			return nil, err
		}
	}

	if len(survivors) < 2 {
		// Under-strength: terminal for the challenge, no advancement.
		if err := s.store.SetChallengeActive(ctx, ch.ID, false); err != nil {
			return nil, err
		}
		ev.Kind = outcome.KindEnded
		return ev, nil
	}

	if err := s.store.AdvanceChallengeWeek(ctx, ch.ID, ch.TotalWeeks+1, currentWeek, currentYear); err != nil {
		return nil, err
	}
	ev.Kind = outcome.KindEliminations
	return ev, nil
}

// SendReminders runs on Friday and Saturday and nudges every participant
// still short of goal. Frozen participants owe nothing this week.
func (s *EvaluationService) SendReminders(ctx context.Context, now time.Time) error {
	if !week.IsReminderDay(now) {
		return nil
	}

	challenges, err := s.store.GetAllActiveChallenges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active challenges: %w", err)
	}

	currentWeek, currentYear := week.Of(now)
	hours := week.HoursUntilBoundary(now)

	for i := range challenges {
		ch := &challenges[i]
		if week.IsWarmup(ch.WeekNumber, ch.WeekYear, ch.StartDate, currentWeek, currentYear) {
			continue
		}

		participants, err := s.store.GetParticipants(ctx, ch.ID)
		if err != nil {
			log.Printf("SendReminders: failed to load participants for %s: %v", ch.ID, err)
			continue
		}

		var behind []outcome.BehindParticipant
		for _, p := range participants {
			if p.IsFrozen {
				continue
			}
			goal := profile.DefaultGoal
			if prof, err := s.store.GetProfile(ctx, p.UserID); err == nil {
				goal = prof.WeeklyGoal
			}
			count, err := s.store.GetWeeklyCheckinCount(ctx, p.UserID, currentWeek, currentYear, true)
			if err != nil {
				log.Printf("SendReminders: failed to count checkins for %s: %v", p.UserID, err)
				continue
			}
			if remaining := goal - count; remaining > 0 {
				behind = append(behind, outcome.BehindParticipant{
					UserID:    p.UserID,
					UserName:  p.UserName,
					Remaining: remaining,
				})
			}
		}

		if len(behind) == 0 || s.notifier == nil {
			continue
		}
		rem := &outcome.Reminder{
			ChallengeID:    ch.ID,
			GuildID:        ch.GuildID,
			ChannelID:      ch.ChannelID,
			HoursRemaining: hours,
			Behind:         behind,
		}
		if err := s.notifier.SendReminder(ctx, rem); err != nil {
			log.Printf("SendReminders: notify failed for challenge %s: %v", ch.ID, err)
		}
	}
	return nil
}
