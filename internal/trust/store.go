package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

// Store persists trust signals.
type Store interface {
	// Get retrieves the trust signal for a user. Returns nil (no error)
	// when none exists yet.
	Get(ctx context.Context, userID string) (*Signal, error)

	// Upsert stores the trust score for a user, incrementing the record
	// version. Returns the stored signal.
	Upsert(ctx context.Context, userID string, score float64) (*Signal, error)
}

// InMemoryStore is an in-memory implementation of Store for testing.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	signals map[string]Signal
}

// NewInMemoryStore creates a new in-memory trust store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{signals: make(map[string]Signal)}
}

// Get retrieves a trust signal by user ID.
func (s *InMemoryStore) Get(ctx context.Context, userID string) (*Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[userID]
	if !ok {
		return nil, nil
	}
	return &sig, nil
}

// Upsert stores a trust score, incrementing the version.
func (s *InMemoryStore) Upsert(ctx context.Context, userID string, score float64) (*Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := Signal{
		UserID:    userID,
		Score:     score,
		Version:   1,
		UpdatedAt: time.Now(),
	}
	if existing, ok := s.signals[userID]; ok {
		sig.Version = existing.Version + 1
	}
	s.signals[userID] = sig
	return &sig, nil
}

// PostgresStore implements Store using PostgreSQL with versioned upserts.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed trust store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Get retrieves a trust signal by user ID.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*Signal, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "trust_signals", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var sig Signal
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, score, version, updated_at FROM trust_signals WHERE user_id = $1`,
		userID,
	).Scan(&sig.UserID, &sig.Score, &sig.Version, &sig.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trust signal: %w", err)
	}
	return &sig, nil
}

// Upsert stores a trust score. The version column increments atomically in
// the ON CONFLICT clause, so concurrent writers cannot silently collapse
// into the same version.
func (s *PostgresStore) Upsert(ctx context.Context, userID string, score float64) (*Signal, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "trust_signals", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO trust_signals (user_id, score, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET score = EXCLUDED.score,
		    version = trust_signals.version + 1,
		    updated_at = NOW()
		RETURNING user_id, score, version, updated_at
	`

	var sig Signal
	err = s.db.QueryRowContext(ctx, query, userID, score).
		Scan(&sig.UserID, &sig.Score, &sig.Version, &sig.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("failed to upsert trust signal: %w", err)
		s.logger.Error("trust signal upsert failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &sig, nil
}
