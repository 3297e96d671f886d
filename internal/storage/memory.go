package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/types/elimination"
	"gymClashAPI/internal/types/notification"
	"gymClashAPI/internal/types/profile"
)

// MemoryStore is a mutex-guarded, map-backed Store. It backs the engine
// tests and local development without a database.
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[string]profile.Profile
	challenges   map[uuid.UUID]challenge.Challenge
	participants map[uuid.UUID]challenge.Participant
	checkins     map[uuid.UUID]checkin.Checkin
	eliminations map[uuid.UUID]elimination.Record
	tokens       []notification.DeviceToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]profile.Profile),
		challenges:   make(map[uuid.UUID]challenge.Challenge),
		participants: make(map[uuid.UUID]challenge.Participant),
		checkins:     make(map[uuid.UUID]checkin.Checkin),
		eliminations: make(map[uuid.UUID]elimination.Record),
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *MemoryStore) GetOrCreateProfile(_ context.Context, userID, userName string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		cp := p
		return &cp, nil
	}
	p := profile.Profile{
		UserID:     userID,
		UserName:   userName,
		Activity:   profile.DefaultActivity,
		WeeklyGoal: profile.DefaultGoal,
	}
	s.profiles[userID] = p
	cp := p
	return &cp, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; !ok {
		return ErrNotFound
	}
	s.profiles[p.UserID] = *p
	return nil
}

func (s *MemoryStore) PromotePendingGoals(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, p := range s.profiles {
		if p.PendingGoal != nil {
			p.WeeklyGoal = *p.PendingGoal
			p.PendingGoal = nil
			s.profiles[id] = p
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateChallenge(_ context.Context, c *challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.challenges[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetChallenge(_ context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (s *MemoryStore) GetActiveChallenge(_ context.Context, guildID string) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *challenge.Challenge
	for _, c := range s.challenges {
		if c.GuildID == guildID && c.IsActive {
			if found == nil || c.StartDate.After(found.StartDate) {
				cp := c
				found = &cp
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) GetAllActiveChallenges(_ context.Context) ([]challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []challenge.Challenge
	for _, c := range s.challenges {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *MemoryStore) GetUserActiveChallenges(_ context.Context, userID string) ([]challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []challenge.Challenge
	for _, c := range s.challenges {
		if !c.IsActive {
			continue
		}
		for _, p := range s.participants {
			if p.ChallengeID == c.ID && p.UserID == userID {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *MemoryStore) SetChallengeActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = active
	s.challenges[id] = c
	return nil
}

func (s *MemoryStore) SetCheckinChannel(_ context.Context, id uuid.UUID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.CheckinChannelID = channelID
	s.challenges[id] = c
	return nil
}

func (s *MemoryStore) AdvanceChallengeWeek(_ context.Context, id uuid.UUID, totalWeeks, weekNumber, weekYear int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return ErrNotFound
	}
	c.TotalWeeks = totalWeeks
	c.WeekNumber = weekNumber
	c.WeekYear = weekYear
	s.challenges[id] = c
	return nil
}

func (s *MemoryStore) GetParticipants(_ context.Context, challengeID uuid.UUID) ([]challenge.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []challenge.Participant
	for _, p := range s.participants {
		if p.ChallengeID == challengeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (s *MemoryStore) GetParticipant(_ context.Context, challengeID uuid.UUID, userID string) (*challenge.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.ChallengeID == challengeID && p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) AddParticipant(_ context.Context, p *challenge.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.participants[p.ID] = *p
	return nil
}

func (s *MemoryStore) RemoveParticipant(_ context.Context, challengeID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.participants {
		if p.ChallengeID == challengeID && p.UserID == userID {
			delete(s.participants, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) SetParticipantFrozen(_ context.Context, challengeID uuid.UUID, userID string, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.participants {
		if p.ChallengeID == challengeID && p.UserID == userID {
			p.IsFrozen = frozen
			s.participants[id] = p
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) SetParticipantStreak(_ context.Context, participantID uuid.UUID, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return ErrNotFound
	}
	p.Streak = streak
	s.participants[participantID] = p
	return nil
}

func (s *MemoryStore) InsertCheckin(_ context.Context, c *checkin.Checkin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Kind == "" {
		c.Kind = checkin.KindGym
	}
	s.checkins[c.ID] = *c
	return nil
}

func (s *MemoryStore) DeleteCheckin(_ context.Context, id uuid.UUID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkins[id]
	if !ok || c.UserID != ownerID {
		return ErrNotFound
	}
	delete(s.checkins, id)
	return nil
}

func (s *MemoryStore) GetWeeklyCheckinCount(_ context.Context, userID string, weekNumber, year int, gymOnly bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.checkins {
		if c.UserID != userID || c.WeekNumber != weekNumber || c.Year != year {
			continue
		}
		if gymOnly && c.Kind == checkin.KindCardio {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) GetTotalCheckinCount(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.checkins {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) GetWeekCheckins(_ context.Context, userID string, weekNumber, year int) ([]checkin.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []checkin.Checkin
	for _, c := range s.checkins {
		if c.UserID == userID && c.WeekNumber == weekNumber && c.Year == year {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *MemoryStore) GetCheckinsSince(_ context.Context, userID string, since time.Time) ([]checkin.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []checkin.Checkin
	for _, c := range s.checkins {
		if c.UserID == userID && !c.RecordedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *MemoryStore) InsertElimination(_ context.Context, r *elimination.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.eliminations[r.ID] = *r
	return nil
}

func (s *MemoryStore) GetLatestElimination(_ context.Context, guildID, userID string) (*elimination.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *elimination.Record
	for _, r := range s.eliminations {
		if r.GuildID != guildID || r.UserID != userID {
			continue
		}
		if latest == nil || r.EndedAt.After(latest.EndedAt) {
			cp := r
			latest = &cp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) DeleteElimination(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eliminations[id]; !ok {
		return ErrNotFound
	}
	delete(s.eliminations, id)
	return nil
}

func (s *MemoryStore) SaveDeviceToken(_ context.Context, t *notification.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tokens {
		if existing.UserID == t.UserID && existing.Token == t.Token {
			s.tokens[i] = *t
			return nil
		}
	}
	s.tokens = append(s.tokens, *t)
	return nil
}

func (s *MemoryStore) GetDeviceTokens(_ context.Context, userID string) ([]notification.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.DeviceToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
