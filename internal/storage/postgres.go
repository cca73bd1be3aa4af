package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Krimson/dig-music/internal/classify"
	"github.com/Krimson/dig-music/internal/session"
)

// PostgresStore реализует session.EventStore поверх PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore создает хранилище поверх готового соединения
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresStoreFromDSN открывает соединение по строке подключения
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close закрывает соединение с БД
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Init создает таблицы, если их еще нет
func (s *PostgresStore) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS baseline (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			baseline_pnn50 DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			pnn50 DOUBLE PRECISION NOT NULL,
			artist_name TEXT NOT NULL,
			track_name TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events (ts DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// SaveBaseline сохраняет базовую линию и возвращает id записи
func (s *PostgresStore) SaveBaseline(ctx context.Context, value float64, ts time.Time) (int64, error) {
	query := `
		INSERT INTO baseline (ts, baseline_pnn50)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, ts, value).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to save baseline: %w", err)
	}
	return id, nil
}

// LoadLatestBaseline возвращает последнюю сохраненную базовую линию
func (s *PostgresStore) LoadLatestBaseline(ctx context.Context) (float64, bool, error) {
	query := `
		SELECT baseline_pnn50
		FROM baseline
		ORDER BY id DESC
		LIMIT 1
	`

	var value float64
	err := s.db.QueryRowContext(ctx, query).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to load baseline: %w", err)
	}
	return value, true, nil
}

// InsertEvent сохраняет событие и возвращает его id
func (s *PostgresStore) InsertEvent(ctx context.Context, event session.Event) (int64, error) {
	query := `
		INSERT INTO events (ts, status, pnn50, artist_name, track_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		event.TS,
		string(event.Status),
		event.PNN50,
		event.ArtistName,
		event.TrackName,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

// MostRecentEventTime возвращает время последнего события
func (s *PostgresStore) MostRecentEventTime(ctx context.Context) (time.Time, bool, error) {
	query := `
		SELECT ts
		FROM events
		ORDER BY id DESC
		LIMIT 1
	`

	var ts time.Time
	err := s.db.QueryRowContext(ctx, query).Scan(&ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to load last event time: %w", err)
	}
	return ts, true, nil
}

// ListEvents возвращает последние события, новые первыми
func (s *PostgresStore) ListEvents(ctx context.Context, limit int) ([]session.Event, error) {
	query := `
		SELECT id, ts, status, pnn50, artist_name, track_name
		FROM events
		ORDER BY ts DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []session.Event
	for rows.Next() {
		var event session.Event
		var status string

		err := rows.Scan(
			&event.ID,
			&event.TS,
			&status,
			&event.PNN50,
			&event.ArtistName,
			&event.TrackName,
		)
		if err != nil {
			continue // Пропускаем поврежденные записи
		}
		event.Status = classify.Status(status)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
