package services

import (
	"context"
	"fmt"
	"time"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/profile"
	"gymClashAPI/internal/week"
)

type ProfileService struct {
	store storage.Store
}

func NewProfileService(store storage.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Get returns the profile with its live stats, creating the profile lazily
// on first interaction.
func (s *ProfileService) Get(ctx context.Context, userID, userName string, now time.Time) (*profile.ProfileStats, error) {
	p, err := s.store.GetOrCreateProfile(ctx, userID, userName)
	if err != nil {
		return nil, err
	}

	weekNumber, year := week.Of(now)
	weekCount, err := s.store.GetWeeklyCheckinCount(ctx, userID, weekNumber, year, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count week checkins: %w", err)
	}
	total, err := s.store.GetTotalCheckinCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count checkins: %w", err)
	}
	active, err := s.store.GetUserActiveChallenges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenges: %w", err)
	}

	return &profile.ProfileStats{
		Profile:          p,
		WeekCheckins:     weekCount,
		TotalCheckins:    total,
		ActiveChallenges: len(active),
	}, nil
}

// Update edits the activity label and/or the weekly goal. A goal change on
// the boundary day applies immediately and clears any pending value;
// anywhere else in the week it is parked in PendingGoal and promoted by
// the next boundary pass, so the week in progress keeps the goal it
// started with.
func (s *ProfileService) Update(ctx context.Context, userID, userName string, req *profile.UpdateProfileRequest, now time.Time) (*profile.UpdateResult, error) {
	p, err := s.store.GetOrCreateProfile(ctx, userID, userName)
	if err != nil {
		return nil, err
	}

	if userName != "" {
		p.UserName = userName
	}
	if req.Activity != nil {
		p.Activity = *req.Activity
	}

	deferred := false
	if req.Goal != nil && *req.Goal != p.WeeklyGoal {
		if week.IsGoalChangeDay(now) {
			p.WeeklyGoal = *req.Goal
			p.PendingGoal = nil
		} else {
			goal := *req.Goal
			p.PendingGoal = &goal
			deferred = true
		}
	}

	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return &profile.UpdateResult{Profile: p, GoalDeferred: deferred}, nil
}
