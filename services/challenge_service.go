package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/profile"
	"gymClashAPI/internal/week"
)

type ChallengeService struct {
	store storage.Store
}

func NewChallengeService(store storage.Store) *ChallengeService {
	return &ChallengeService{store: store}
}

// Setup creates a guild's challenge with the creator and one opponent.
// A guild can only carry one active challenge at a time.
func (s *ChallengeService) Setup(ctx context.Context, creator challenge.Member, req *challenge.SetupRequest, now time.Time) (*challenge.Challenge, error) {
	if creator.UserID == req.Opponent.UserID {
		return nil, ErrSelfChallenge
	}

	if _, err := s.store.GetActiveChallenge(ctx, req.GuildID); err == nil {
		return nil, ErrChallengeExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if _, err := s.store.GetOrCreateProfile(ctx, creator.UserID, creator.UserName); err != nil {
		return nil, err
	}
	opponentProfile, err := s.store.GetOrCreateProfile(ctx, req.Opponent.UserID, req.Opponent.UserName)
	if err != nil {
		return nil, err
	}

	if req.OpponentGoal != nil {
		opponentProfile.WeeklyGoal = *req.OpponentGoal
		opponentProfile.PendingGoal = nil
		if err := s.store.UpdateProfile(ctx, opponentProfile); err != nil {
			return nil, err
		}
	}

	weekNumber, weekYear := week.Of(now)
	ch := &challenge.Challenge{
		GuildID:          req.GuildID,
		ChannelID:        req.ChannelID,
		CheckinChannelID: req.ChannelID,
		StartDate:        now,
		IsActive:         true,
		WeekNumber:       weekNumber,
		WeekYear:         weekYear,
		TotalWeeks:       0,
	}
	if err := s.store.CreateChallenge(ctx, ch); err != nil {
		return nil, err
	}

	members := []struct {
		m     challenge.Member
		stake string
	}{
		{creator, req.CreatorStake},
		{req.Opponent, req.OpponentStake},
	}
	for _, mb := range members {
		p := &challenge.Participant{
			ChallengeID: ch.ID,
			UserID:      mb.m.UserID,
			UserName:    mb.m.UserName,
			Stake:       mb.stake,
		}
		if err := s.store.AddParticipant(ctx, p); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// AddPlayer lets an existing participant bring another user in.
func (s *ChallengeService) AddPlayer(ctx context.Context, actorID string, req *challenge.AddPlayerRequest) (*challenge.Participant, error) {
	ch, err := s.activeChallenge(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetParticipant(ctx, ch.ID, actorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	if _, err := s.store.GetParticipant(ctx, ch.ID, req.Player.UserID); err == nil {
		return nil, ErrAlreadyParticipant
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	prof, err := s.store.GetOrCreateProfile(ctx, req.Player.UserID, req.Player.UserName)
	if err != nil {
		return nil, err
	}
	if req.Goal != nil {
		prof.WeeklyGoal = *req.Goal
		prof.PendingGoal = nil
		if err := s.store.UpdateProfile(ctx, prof); err != nil {
			return nil, err
		}
	}

	p := &challenge.Participant{
		ChallengeID: ch.ID,
		UserID:      req.Player.UserID,
		UserName:    req.Player.UserName,
		Stake:       req.Stake,
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePlayer drops a participant, refusing when it would leave the
// challenge under strength; cancellation is the way out of a 2-person
// challenge.
func (s *ChallengeService) RemovePlayer(ctx context.Context, guildID, playerID string) error {
	ch, err := s.activeChallenge(ctx, guildID)
	if err != nil {
		return err
	}

	if _, err := s.store.GetParticipant(ctx, ch.ID, playerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}

	participants, err := s.store.GetParticipants(ctx, ch.ID)
	if err != nil {
		return err
	}
	if len(participants) <= 2 {
		return ErrMinimumParticipants
	}

	return s.store.RemoveParticipant(ctx, ch.ID, playerID)
}

// Cancel deactivates a guild's challenge with no winner and no stake.
// Participant-only.
func (s *ChallengeService) Cancel(ctx context.Context, guildID, actorID string) error {
	ch, err := s.activeChallenge(ctx, guildID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetParticipant(ctx, ch.ID, actorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	return s.store.SetChallengeActive(ctx, ch.ID, false)
}

// SetCheckinChannel repoints where check-in announcements land.
func (s *ChallengeService) SetCheckinChannel(ctx context.Context, guildID, actorID, channelID string) error {
	ch, err := s.activeChallenge(ctx, guildID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetParticipant(ctx, ch.ID, actorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	return s.store.SetCheckinChannel(ctx, ch.ID, channelID)
}

// Freeze pauses one participant on one guild's challenge.
func (s *ChallengeService) Freeze(ctx context.Context, guildID, userID string) error {
	return s.setFrozen(ctx, guildID, userID, true)
}

// Unfreeze resumes one participant on one guild's challenge.
func (s *ChallengeService) Unfreeze(ctx context.Context, guildID, userID string) error {
	return s.setFrozen(ctx, guildID, userID, false)
}

func (s *ChallengeService) setFrozen(ctx context.Context, guildID, userID string, frozen bool) error {
	ch, err := s.activeChallenge(ctx, guildID)
	if err != nil {
		return err
	}
	p, err := s.store.GetParticipant(ctx, ch.ID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	if p.IsFrozen == frozen {
		if frozen {
			return ErrAlreadyFrozen
		}
		return ErrNotFrozen
	}
	return s.store.SetParticipantFrozen(ctx, ch.ID, userID, frozen)
}

// FreezeAll pauses the user on every challenge they participate in and
// returns how many were touched.
func (s *ChallengeService) FreezeAll(ctx context.Context, userID string) (int, error) {
	return s.setFrozenAll(ctx, userID, true)
}

// UnfreezeAll resumes the user everywhere.
func (s *ChallengeService) UnfreezeAll(ctx context.Context, userID string) (int, error) {
	return s.setFrozenAll(ctx, userID, false)
}

func (s *ChallengeService) setFrozenAll(ctx context.Context, userID string, frozen bool) (int, error) {
	challenges, err := s.store.GetUserActiveChallenges(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(challenges) == 0 {
		return 0, ErrNoActiveChallenge
	}

	touched := 0
	for _, ch := range challenges {
		p, err := s.store.GetParticipant(ctx, ch.ID, userID)
		if err != nil || p.IsFrozen == frozen {
			continue
		}
		if err := s.store.SetParticipantFrozen(ctx, ch.ID, userID, frozen); err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// Stats assembles the live scoreboard of a guild's challenge.
func (s *ChallengeService) Stats(ctx context.Context, guildID string, now time.Time) (*challenge.Stats, error) {
	ch, err := s.activeChallenge(ctx, guildID)
	if err != nil {
		return nil, err
	}

	participants, err := s.store.GetParticipants(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	weekNumber, year := week.Of(now)
	stats := &challenge.Stats{
		Challenge:     ch,
		ChallengeWeek: week.ChallengeWeek(ch.StartDate, now),
		DaysRemaining: week.DaysRemaining(now),
		WarmupWeek:    week.IsWarmup(ch.WeekNumber, ch.WeekYear, ch.StartDate, weekNumber, year),
		AllValidated:  true,
	}

	bestPct := -1.0
	for _, p := range participants {
		goal := profile.DefaultGoal
		if prof, err := s.store.GetProfile(ctx, p.UserID); err == nil {
			goal = prof.WeeklyGoal
		}
		count, err := s.store.GetWeeklyCheckinCount(ctx, p.UserID, weekNumber, year, true)
		if err != nil {
			return nil, fmt.Errorf("failed to count checkins: %w", err)
		}

		st := challenge.ParticipantStatus{
			UserID:   p.UserID,
			UserName: p.UserName,
			Count:    count,
			Goal:     goal,
			Streak:   p.Streak,
			IsFrozen: p.IsFrozen,
		}
		stats.Participants = append(stats.Participants, st)

		if !p.IsFrozen && count < goal {
			stats.AllValidated = false
		}
		if goal > 0 && !p.IsFrozen {
			if pct := float64(count) / float64(goal); pct > bestPct {
				bestPct = pct
				leader := st
				stats.Leader = &leader
			}
		}
	}
	return stats, nil
}

// UserChallenges lists every active challenge the user participates in,
// with their score on each.
func (s *ChallengeService) UserChallenges(ctx context.Context, userID string, now time.Time) ([]challenge.Stats, error) {
	challenges, err := s.store.GetUserActiveChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]challenge.Stats, 0, len(challenges))
	for _, ch := range challenges {
		st, err := s.Stats(ctx, ch.GuildID, now)
		if err != nil {
			if errors.Is(err, ErrNoActiveChallenge) {
				continue
			}
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

func (s *ChallengeService) activeChallenge(ctx context.Context, guildID string) (*challenge.Challenge, error) {
	ch, err := s.store.GetActiveChallenge(ctx, guildID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoActiveChallenge
		}
		return nil, err
	}
	return ch, nil
}
