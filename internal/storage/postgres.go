package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/internal/types/checkin"
	"gymClashAPI/internal/types/elimination"
	"gymClashAPI/internal/types/notification"
	"gymClashAPI/internal/types/profile"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			user_name TEXT NOT NULL,
			activity TEXT NOT NULL DEFAULT 'Sport',
			weekly_goal INTEGER NOT NULL DEFAULT 4,
			pending_goal INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id UUID PRIMARY KEY,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			checkin_channel_id TEXT,
			start_date TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			week_number INTEGER NOT NULL,
			week_year INTEGER NOT NULL DEFAULT 0,
			total_weeks INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS challenge_participants (
			id UUID PRIMARY KEY,
			challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			stake TEXT NOT NULL,
			is_frozen BOOLEAN NOT NULL DEFAULT FALSE,
			streak INTEGER NOT NULL DEFAULT 0,
			UNIQUE (challenge_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			photo_url TEXT,
			note TEXT,
			session_kind TEXT DEFAULT 'gym'
		)`,
		`CREATE TABLE IF NOT EXISTS eliminations (
			id UUID PRIMARY KEY,
			challenge_id UUID NOT NULL,
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			stake TEXT NOT NULL,
			goal INTEGER NOT NULL DEFAULT 0,
			ended_at TIMESTAMPTZ NOT NULL,
			reason TEXT NOT NULL,
			total_weeks INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS device_tokens (
			user_id TEXT NOT NULL,
			token TEXT NOT NULL,
			platform TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, token)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_guild ON challenges(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_active ON challenges(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_challenge ON challenge_participants(challenge_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON challenge_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_user ON checkins(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_week ON checkins(user_id, week_number, year)`,
		`CREATE INDEX IF NOT EXISTS idx_eliminations_guild_user ON eliminations(guild_id, user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `
	SELECT user_id, user_name, activity, weekly_goal, pending_goal
	FROM profiles
	WHERE user_id = $1
	`

	p := &profile.Profile{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.UserName,
		&p.Activity,
		&p.WeeklyGoal,
		&p.PendingGoal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetOrCreateProfile(ctx context.Context, userID, userName string) (*profile.Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `
	INSERT INTO profiles (user_id, user_name, activity, weekly_goal)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, userID, userName, profile.DefaultActivity, profile.DefaultGoal); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, p *profile.Profile) error {
	query := `
	UPDATE profiles
	SET user_name = $2, activity = $3, weekly_goal = $4, pending_goal = $5
	WHERE user_id = $1
	`
	tag, err := s.db.Exec(ctx, query, p.UserID, p.UserName, p.Activity, p.WeeklyGoal, p.PendingGoal)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PromotePendingGoals(ctx context.Context) (int, error) {
	query := `
	UPDATE profiles
	SET weekly_goal = pending_goal, pending_goal = NULL
	WHERE pending_goal IS NOT NULL
	`
	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to promote pending goals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateChallenge(ctx context.Context, c *challenge.Challenge) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
	INSERT INTO challenges (id, guild_id, channel_id, checkin_channel_id, start_date, is_active, week_number, week_year, total_weeks)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		c.ID, c.GuildID, c.ChannelID, c.CheckinChannelID, c.StartDate, c.IsActive, c.WeekNumber, c.WeekYear, c.TotalWeeks)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

const challengeColumns = `id, guild_id, channel_id, COALESCE(checkin_channel_id, channel_id), start_date, is_active, week_number, week_year, total_weeks`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.GuildID,
		&c.ChannelID,
		&c.CheckinChannelID,
		&c.StartDate,
		&c.IsActive,
		&c.WeekNumber,
		&c.WeekYear,
		&c.TotalWeeks,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`
	c, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetActiveChallenge(ctx context.Context, guildID string) (*challenge.Challenge, error) {
	query := `
	SELECT ` + challengeColumns + `
	FROM challenges
	WHERE guild_id = $1 AND is_active = TRUE
	ORDER BY start_date DESC
	LIMIT 1
	`
	c, err := scanChallenge(s.db.QueryRow(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active challenge: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetAllActiveChallenges(ctx context.Context) ([]challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE is_active = TRUE`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active challenges: %w", err)
	}
	defer rows.Close()

	var out []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetUserActiveChallenges(ctx context.Context, userID string) ([]challenge.Challenge, error) {
	query := `
	SELECT c.id, c.guild_id, c.channel_id, COALESCE(c.checkin_channel_id, c.channel_id), c.start_date, c.is_active, c.week_number, c.week_year, c.total_weeks
	FROM challenges c
	JOIN challenge_participants cp ON c.id = cp.challenge_id
	WHERE c.is_active = TRUE AND cp.user_id = $1
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user challenges: %w", err)
	}
	defer rows.Close()

	var out []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetChallengeActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := s.db.Exec(ctx, `UPDATE challenges SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set challenge active: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetCheckinChannel(ctx context.Context, id uuid.UUID, channelID string) error {
	_, err := s.db.Exec(ctx, `UPDATE challenges SET checkin_channel_id = $2 WHERE id = $1`, id, channelID)
	if err != nil {
		return fmt.Errorf("failed to set checkin channel: %w", err)
	}
	return nil
}

func (s *PostgresStore) AdvanceChallengeWeek(ctx context.Context, id uuid.UUID, totalWeeks, weekNumber, weekYear int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE challenges SET total_weeks = $2, week_number = $3, week_year = $4 WHERE id = $1`,
		id, totalWeeks, weekNumber, weekYear)
	if err != nil {
		return fmt.Errorf("failed to advance challenge week: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetParticipants(ctx context.Context, challengeID uuid.UUID) ([]challenge.Participant, error) {
	query := `
	SELECT id, challenge_id, user_id, user_name, stake, is_frozen, streak
	FROM challenge_participants
	WHERE challenge_id = $1
	ORDER BY user_name
	`
	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var out []challenge.Participant
	for rows.Next() {
		var p challenge.Participant
		if err := rows.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.UserName, &p.Stake, &p.IsFrozen, &p.Streak); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetParticipant(ctx context.Context, challengeID uuid.UUID, userID string) (*challenge.Participant, error) {
	query := `
	SELECT id, challenge_id, user_id, user_name, stake, is_frozen, streak
	FROM challenge_participants
	WHERE challenge_id = $1 AND user_id = $2
	`
	p := &challenge.Participant{}
	err := s.db.QueryRow(ctx, query, challengeID, userID).Scan(
		&p.ID, &p.ChallengeID, &p.UserID, &p.UserName, &p.Stake, &p.IsFrozen, &p.Streak)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, p *challenge.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
	INSERT INTO challenge_participants (id, challenge_id, user_id, user_name, stake, is_frozen, streak)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query, p.ID, p.ChallengeID, p.UserID, p.UserName, p.Stake, p.IsFrozen, p.Streak)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveParticipant(ctx context.Context, challengeID uuid.UUID, userID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetParticipantFrozen(ctx context.Context, challengeID uuid.UUID, userID string, frozen bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE challenge_participants SET is_frozen = $3 WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID, frozen)
	if err != nil {
		return fmt.Errorf("failed to set frozen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetParticipantStreak(ctx context.Context, participantID uuid.UUID, streak int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE challenge_participants SET streak = $2 WHERE id = $1`,
		participantID, streak)
	if err != nil {
		return fmt.Errorf("failed to set streak: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCheckin(ctx context.Context, c *checkin.Checkin) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
	INSERT INTO checkins (id, user_id, recorded_at, week_number, year, photo_url, note, session_kind)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		c.ID, c.UserID, c.RecordedAt, c.WeekNumber, c.Year, c.PhotoURL, c.Note, string(c.Kind))
	if err != nil {
		return fmt.Errorf("failed to insert checkin: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCheckin(ctx context.Context, id uuid.UUID, ownerID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM checkins WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete checkin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetWeeklyCheckinCount(ctx context.Context, userID string, weekNumber, year int, gymOnly bool) (int, error) {
	var query string
	if gymOnly {
		// Legacy rows with NULL session_kind count as gym.
		query = `
		SELECT COUNT(*) FROM checkins
		WHERE user_id = $1 AND week_number = $2 AND year = $3
		AND (session_kind = 'gym' OR session_kind IS NULL)
		`
	} else {
		query = `
		SELECT COUNT(*) FROM checkins
		WHERE user_id = $1 AND week_number = $2 AND year = $3
		`
	}

	var count int
	if err := s.db.QueryRow(ctx, query, userID, weekNumber, year).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count checkins: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetTotalCheckinCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM checkins WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count checkins: %w", err)
	}
	return count, nil
}

const checkinColumns = `id, user_id, recorded_at, week_number, year, COALESCE(photo_url, ''), COALESCE(note, ''), COALESCE(session_kind, 'gym')`

func (s *PostgresStore) GetWeekCheckins(ctx context.Context, userID string, weekNumber, year int) ([]checkin.Checkin, error) {
	query := `
	SELECT ` + checkinColumns + `
	FROM checkins
	WHERE user_id = $1 AND week_number = $2 AND year = $3
	ORDER BY recorded_at
	`
	rows, err := s.db.Query(ctx, query, userID, weekNumber, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get week checkins: %w", err)
	}
	defer rows.Close()
	return scanCheckins(rows)
}

func (s *PostgresStore) GetCheckinsSince(ctx context.Context, userID string, since time.Time) ([]checkin.Checkin, error) {
	query := `
	SELECT ` + checkinColumns + `
	FROM checkins
	WHERE user_id = $1 AND recorded_at >= $2
	ORDER BY recorded_at
	`
	rows, err := s.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkins: %w", err)
	}
	defer rows.Close()
	return scanCheckins(rows)
}

func scanCheckins(rows pgx.Rows) ([]checkin.Checkin, error) {
	var out []checkin.Checkin
	for rows.Next() {
		var c checkin.Checkin
		var kind string
		if err := rows.Scan(&c.ID, &c.UserID, &c.RecordedAt, &c.WeekNumber, &c.Year, &c.PhotoURL, &c.Note, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		c.Kind = checkin.SessionKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertElimination(ctx context.Context, r *elimination.Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
	INSERT INTO eliminations (id, challenge_id, guild_id, user_id, user_name, stake, goal, ended_at, reason, total_weeks)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		r.ID, r.ChallengeID, r.GuildID, r.UserID, r.UserName, r.Stake, r.Goal, r.EndedAt, r.Reason, r.TotalWeeks)
	if err != nil {
		return fmt.Errorf("failed to insert elimination: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLatestElimination(ctx context.Context, guildID, userID string) (*elimination.Record, error) {
	query := `
	SELECT id, challenge_id, guild_id, user_id, user_name, stake, goal, ended_at, reason, total_weeks
	FROM eliminations
	WHERE guild_id = $1 AND user_id = $2
	ORDER BY ended_at DESC
	LIMIT 1
	`
	r := &elimination.Record{}
	err := s.db.QueryRow(ctx, query, guildID, userID).Scan(
		&r.ID, &r.ChallengeID, &r.GuildID, &r.UserID, &r.UserName, &r.Stake, &r.Goal, &r.EndedAt, &r.Reason, &r.TotalWeeks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get elimination: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteElimination(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM eliminations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete elimination: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, token) DO UPDATE SET platform = $3
	`
	_, err := s.db.Exec(ctx, query, t.UserID, t.Token, t.Platform)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	query := `SELECT user_id, token, platform, created_at FROM device_tokens WHERE user_id = $1`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var out []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
