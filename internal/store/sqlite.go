package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes prediction writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		crop_type TEXT NOT NULL,
		soil_type TEXT NOT NULL,
		features_json TEXT NOT NULL,
		predicted_yield REAL NOT NULL,
		lowest_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// RecordPrediction stores a completed conversation. An empty ID is filled in.
// Writes are retried with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) RecordPrediction(ctx context.Context, rec *domain.PredictionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	lowest, err := json.Marshal(rec.Lowest)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}

	return retryOnBusy(ctx, "RecordPrediction", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		query := `
		INSERT INTO predictions (
			id, user_id, session_id, crop_type, soil_type,
			features_json, predicted_yield, lowest_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.UserID, rec.SessionID, rec.CropType, rec.SoilType,
			string(features), rec.PredictedYield, string(lowest), rec.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
		return nil
	})
}

// ListPredictions returns the newest predictions of a user, newest first.
func (s *SQLiteStore) ListPredictions(ctx context.Context, userID string, limit int) ([]*domain.PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, user_id, session_id, crop_type, soil_type,
		       features_json, predicted_yield, lowest_json, created_at
		FROM predictions WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close prediction rows", "error", closeErr)
		}
	}()

	var records []*domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		var featuresJSON, lowestJSON string
		var createdAt int64

		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.SessionID, &rec.CropType, &rec.SoilType,
			&featuresJSON, &rec.PredictedYield, &lowestJSON, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &rec.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(lowestJSON), &rec.Lowest); err != nil {
			return nil, fmt.Errorf("decode ranking of %s: %w", rec.ID, err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}

	return records, nil
}

// PurgePredictions removes predictions created before cutoff.
func (s *SQLiteStore) PurgePredictions(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := retryOnBusy(ctx, "PurgePredictions", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		result, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE created_at < ?`, cutoff.Unix())
		if err != nil {
			return fmt.Errorf("purge predictions: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// retryOnBusy runs fn up to three times with exponential backoff while it
// fails with a SQLite lock error.
func retryOnBusy(ctx context.Context, op string, fn func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms
		slog.Debug("SQLite write failed with SQLITE_BUSY, retrying",
			"op", op,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Repository = (*SQLiteStore)(nil)
