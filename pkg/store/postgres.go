package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"-"`
	ConnectTimeout  time.Duration `yaml:"-"`
}

// DefaultPostgresConfig returns a config with sensible default values.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		Database:        "fireflies",
		User:            "fireflies",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  10 * time.Second,
	}
}

// ConnectionString builds a PostgreSQL connection string from the config.
func (c PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// NewPool creates a pgx connection pool from the config.
func NewPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// schema is applied idempotently at startup. Retention of occurrence rows is
// a store concern; the engine never deletes them.
const schema = `
CREATE TABLE IF NOT EXISTS meeting_series (
	id               UUID PRIMARY KEY,
	title_key        TEXT NOT NULL,
	name             TEXT NOT NULL,
	cadence          TEXT NOT NULL DEFAULT 'unknown',
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	provisional      BOOLEAN NOT NULL DEFAULT FALSE,
	last_active      TIMESTAMPTZ NOT NULL,
	attendee_profile JSONB NOT NULL DEFAULT '{}',
	topic_profile    JSONB NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_meeting_series_title_key ON meeting_series (title_key);

CREATE TABLE IF NOT EXISTS meeting_occurrences (
	id               TEXT PRIMARY KEY,
	series_id        UUID NOT NULL REFERENCES meeting_series (id),
	title            TEXT NOT NULL,
	title_key        TEXT NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	attendees        TEXT[] NOT NULL DEFAULT '{}',
	topic_tokens     TEXT[] NOT NULL DEFAULT '{}',
	transcript_ready BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_meeting_occurrences_series ON meeting_occurrences (series_id, start_time);

CREATE TABLE IF NOT EXISTS series_subscriptions (
	series_id  UUID NOT NULL REFERENCES meeting_series (id),
	channel    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (series_id, channel)
);
`

// Repository provides durable persistence for series records. It sits behind
// the in-memory store: the engine warms the store from it at startup and
// writes mutations through to it, outside the matching hot path.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Repository{pool: pool, logger: logger}
}

// EnsureSchema creates the tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// SaveSeries upserts the series row (not its occurrences).
func (r *Repository) SaveSeries(ctx context.Context, s series.Series) error {
	attendees, err := json.Marshal(s.AttendeeProfile)
	if err != nil {
		return fmt.Errorf("marshaling attendee profile: %w", err)
	}
	topics, err := json.Marshal(s.TopicProfile)
	if err != nil {
		return fmt.Errorf("marshaling topic profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO meeting_series
			(id, title_key, name, cadence, confidence, provisional, last_active, attendee_profile, topic_profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title_key        = EXCLUDED.title_key,
			cadence          = EXCLUDED.cadence,
			confidence       = EXCLUDED.confidence,
			provisional      = EXCLUDED.provisional,
			last_active      = EXCLUDED.last_active,
			attendee_profile = EXCLUDED.attendee_profile,
			topic_profile    = EXCLUDED.topic_profile,
			updated_at       = NOW()`,
		s.ID, s.TitleKey, s.Name, string(s.Cadence), s.Confidence, s.Provisional,
		s.LastActive, attendees, topics)
	if err != nil {
		return fmt.Errorf("upserting series %s: %w", s.ID, err)
	}
	return nil
}

// SaveOccurrence inserts an occurrence row. Inserting an occurrence that
// already belongs to a different series fails with ErrConflict.
func (r *Repository) SaveOccurrence(ctx context.Context, seriesID string, occ series.Occurrence) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO meeting_occurrences
			(id, series_id, title, title_key, start_time, attendees, topic_tokens, transcript_ready)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		occ.ID, seriesID, occ.Title, occ.TitleKey, occ.StartTime,
		occ.Attendees, occ.TopicTokens, occ.TranscriptReady)
	if err != nil {
		return fmt.Errorf("inserting occurrence %s: %w", occ.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var existing string
		err := r.pool.QueryRow(ctx,
			`SELECT series_id FROM meeting_occurrences WHERE id = $1`, occ.ID).Scan(&existing)
		if err == nil && existing != seriesID {
			return fmt.Errorf("occurrence %s already attached to series %s: %w",
				occ.ID, existing, fferrors.ErrConflict)
		}
	}
	return nil
}

// MarkTranscriptReady flips the transcript-ready flag on the durable record.
func (r *Repository) MarkTranscriptReady(ctx context.Context, occurrenceID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meeting_occurrences SET transcript_ready = TRUE WHERE id = $1`, occurrenceID)
	if err != nil {
		return fmt.Errorf("marking occurrence %s ready: %w", occurrenceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("occurrence %s: %w", occurrenceID, fferrors.ErrNotFound)
	}
	return nil
}

// LoadAll reads every series and its most recent occurrences (up to window
// per series) for warming the in-memory store.
func (r *Repository) LoadAll(ctx context.Context, window int) ([]series.Series, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title_key, name, cadence, confidence, provisional, last_active,
		       attendee_profile, topic_profile
		FROM meeting_series`)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	out := make([]series.Series, 0)
	for rows.Next() {
		var s series.Series
		var cadence string
		var attendeeJSON, topicJSON []byte
		if err := rows.Scan(&s.ID, &s.TitleKey, &s.Name, &cadence, &s.Confidence,
			&s.Provisional, &s.LastActive, &attendeeJSON, &topicJSON); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		s.Cadence = series.Cadence(cadence)
		if err := json.Unmarshal(attendeeJSON, &s.AttendeeProfile); err != nil {
			return nil, fmt.Errorf("unmarshaling attendee profile: %w", err)
		}
		if err := json.Unmarshal(topicJSON, &s.TopicProfile); err != nil {
			return nil, fmt.Errorf("unmarshaling topic profile: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating series: %w", err)
	}

	for i := range out {
		history, err := r.loadHistory(ctx, out[i].ID, window)
		if err != nil {
			return nil, err
		}
		out[i].History = history
	}
	return out, nil
}

// loadHistory reads the most recent occurrences of a series in chronological
// order.
func (r *Repository) loadHistory(ctx context.Context, seriesID string, window int) ([]series.Occurrence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, title_key, start_time, attendees, topic_tokens, transcript_ready
		FROM (
			SELECT * FROM meeting_occurrences
			WHERE series_id = $1
			ORDER BY start_time DESC
			LIMIT $2
		) recent
		ORDER BY start_time ASC`, seriesID, window)
	if err != nil {
		return nil, fmt.Errorf("querying occurrences for %s: %w", seriesID, err)
	}
	defer rows.Close()

	history := make([]series.Occurrence, 0, window)
	for rows.Next() {
		var occ series.Occurrence
		if err := rows.Scan(&occ.ID, &occ.Title, &occ.TitleKey, &occ.StartTime,
			&occ.Attendees, &occ.TopicTokens, &occ.TranscriptReady); err != nil {
			return nil, fmt.Errorf("scanning occurrence: %w", err)
		}
		history = append(history, occ)
	}
	return history, rows.Err()
}

// Subscribe records a delivery channel for a series. Subscriptions are the
// administrative surface only; they never alter matching logic.
func (r *Repository) Subscribe(ctx context.Context, seriesID, channel string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO series_subscriptions (series_id, channel)
		VALUES ($1, $2)
		ON CONFLICT (series_id, channel) DO NOTHING`, seriesID, channel)
	if err != nil {
		return fmt.Errorf("subscribing %s to %s: %w", channel, seriesID, err)
	}
	return nil
}

// Unsubscribe removes a delivery channel from a series.
func (r *Repository) Unsubscribe(ctx context.Context, seriesID, channel string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM series_subscriptions WHERE series_id = $1 AND channel = $2`,
		seriesID, channel)
	if err != nil {
		return fmt.Errorf("unsubscribing %s from %s: %w", channel, seriesID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s/%s: %w", seriesID, channel, fferrors.ErrNotFound)
	}
	return nil
}

// Subscriptions lists the channels subscribed to a series.
func (r *Repository) Subscriptions(ctx context.Context, seriesID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT channel FROM series_subscriptions WHERE series_id = $1 ORDER BY channel`,
		seriesID)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions for %s: %w", seriesID, err)
	}
	defer rows.Close()

	channels := make([]string, 0)
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetSeriesRow reads a single series row without its history.
func (r *Repository) GetSeriesRow(ctx context.Context, seriesID string) (series.Series, error) {
	var s series.Series
	var cadence string
	var attendeeJSON, topicJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, title_key, name, cadence, confidence, provisional, last_active,
		       attendee_profile, topic_profile
		FROM meeting_series WHERE id = $1`, seriesID).
		Scan(&s.ID, &s.TitleKey, &s.Name, &cadence, &s.Confidence,
			&s.Provisional, &s.LastActive, &attendeeJSON, &topicJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return series.Series{}, fmt.Errorf("series %s: %w", seriesID, fferrors.ErrNotFound)
	}
	if err != nil {
		return series.Series{}, fmt.Errorf("querying series %s: %w", seriesID, err)
	}
	s.Cadence = series.Cadence(cadence)
	if err := json.Unmarshal(attendeeJSON, &s.AttendeeProfile); err != nil {
		return series.Series{}, fmt.Errorf("unmarshaling attendee profile: %w", err)
	}
	if err := json.Unmarshal(topicJSON, &s.TopicProfile); err != nil {
		return series.Series{}, fmt.Errorf("unmarshaling topic profile: %w", err)
	}
	return s, nil
}
