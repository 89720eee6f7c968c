package affinity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

// CategoryWeight is the stored affinity weight for a (user, category)
// pair. Created at the neutral weight on first feedback for the category;
// Version increments on every upsert.
type CategoryWeight struct {
	UserID        string    `json:"user_id"`
	Category      string    `json:"category"`
	Weight        float64   `json:"weight"`
	FeedbackCount int       `json:"feedback_count"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists category weights.
type Store interface {
	// Get retrieves the weight for a (user, category) pair. Returns nil
	// (no error) when none exists yet.
	Get(ctx context.Context, userID, category string) (*CategoryWeight, error)

	// Upsert stores a weight and feedback count, incrementing the record
	// version. Returns the stored row.
	Upsert(ctx context.Context, userID, category string, weight float64, feedbackCount int) (*CategoryWeight, error)

	// ListByUser returns all category weights for a user.
	ListByUser(ctx context.Context, userID string) ([]CategoryWeight, error)

	// ListExtreme returns all rows with weight below low or above high,
	// across all users. Used by the bias monitor's system scan.
	ListExtreme(ctx context.Context, low, high float64) ([]CategoryWeight, error)

	// CountAll returns the total number of stored rows.
	CountAll(ctx context.Context) (int, error)
}

// InMemoryStore is an in-memory implementation of Store for testing.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	weights map[string]map[string]CategoryWeight // userID -> category -> weight
}

// NewInMemoryStore creates a new in-memory category weight store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{weights: make(map[string]map[string]CategoryWeight)}
}

// Get retrieves the weight for a (user, category) pair.
func (s *InMemoryStore) Get(ctx context.Context, userID, category string) (*CategoryWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cw, ok := s.weights[userID][category]
	if !ok {
		return nil, nil
	}
	return &cw, nil
}

// Upsert stores a weight, incrementing the version.
func (s *InMemoryStore) Upsert(ctx context.Context, userID, category string, weight float64, feedbackCount int) (*CategoryWeight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory, ok := s.weights[userID]
	if !ok {
		byCategory = make(map[string]CategoryWeight)
		s.weights[userID] = byCategory
	}

	cw := CategoryWeight{
		UserID:        userID,
		Category:      category,
		Weight:        weight,
		FeedbackCount: feedbackCount,
		Version:       1,
		UpdatedAt:     time.Now(),
	}
	if existing, ok := byCategory[category]; ok {
		cw.Version = existing.Version + 1
	}
	byCategory[category] = cw
	return &cw, nil
}

// ListByUser returns all category weights for a user.
func (s *InMemoryStore) ListByUser(ctx context.Context, userID string) ([]CategoryWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCategory := s.weights[userID]
	result := make([]CategoryWeight, 0, len(byCategory))
	for _, cw := range byCategory {
		result = append(result, cw)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

// ListExtreme returns all rows with weight outside (low, high).
func (s *InMemoryStore) ListExtreme(ctx context.Context, low, high float64) ([]CategoryWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []CategoryWeight
	for _, byCategory := range s.weights {
		for _, cw := range byCategory {
			if cw.Weight < low || cw.Weight > high {
				result = append(result, cw)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// CountAll returns the total number of stored rows.
func (s *InMemoryStore) CountAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, byCategory := range s.weights {
		total += len(byCategory)
	}
	return total, nil
}

// PostgresStore implements Store using PostgreSQL with versioned upserts.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres-backed category weight store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Get retrieves the weight for a (user, category) pair.
func (s *PostgresStore) Get(ctx context.Context, userID, category string) (*CategoryWeight, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "category_weights", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var cw CategoryWeight
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, category, weight, feedback_count, version, updated_at
		FROM category_weights
		WHERE user_id = $1 AND category = $2
	`, userID, category).Scan(&cw.UserID, &cw.Category, &cw.Weight, &cw.FeedbackCount, &cw.Version, &cw.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category weight: %w", err)
	}
	return &cw, nil
}

// Upsert stores a weight with an atomic version increment.
func (s *PostgresStore) Upsert(ctx context.Context, userID, category string, weight float64, feedbackCount int) (*CategoryWeight, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "category_weights", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO category_weights (user_id, category, weight, feedback_count, version, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (user_id, category) DO UPDATE
		SET weight = EXCLUDED.weight,
		    feedback_count = EXCLUDED.feedback_count,
		    version = category_weights.version + 1,
		    updated_at = NOW()
		RETURNING user_id, category, weight, feedback_count, version, updated_at
	`

	var cw CategoryWeight
	err = s.db.QueryRowContext(ctx, query, userID, category, weight, feedbackCount).
		Scan(&cw.UserID, &cw.Category, &cw.Weight, &cw.FeedbackCount, &cw.Version, &cw.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("failed to upsert category weight: %w", err)
		s.logger.Error("category weight upsert failed",
			slog.String("user_id", userID),
			slog.String("category", category),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &cw, nil
}

// ListByUser returns all category weights for a user.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]CategoryWeight, error) {
	return s.list(ctx, `
		SELECT user_id, category, weight, feedback_count, version, updated_at
		FROM category_weights
		WHERE user_id = $1
		ORDER BY category
	`, userID)
}

// ListExtreme returns all rows with weight outside (low, high).
func (s *PostgresStore) ListExtreme(ctx context.Context, low, high float64) ([]CategoryWeight, error) {
	return s.list(ctx, `
		SELECT user_id, category, weight, feedback_count, version, updated_at
		FROM category_weights
		WHERE weight < $1 OR weight > $2
		ORDER BY user_id, category
	`, low, high)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]CategoryWeight, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "category_weights", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category weights: %w", err)
	}
	defer rows.Close()

	var result []CategoryWeight
	for rows.Next() {
		var cw CategoryWeight
		if err = rows.Scan(&cw.UserID, &cw.Category, &cw.Weight, &cw.FeedbackCount, &cw.Version, &cw.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category weight: %w", err)
		}
		result = append(result, cw)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category weights: %w", err)
	}
	return result, nil
}

// CountAll returns the total number of stored rows.
func (s *PostgresStore) CountAll(ctx context.Context) (int, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "category_weights", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var n int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_weights`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count category weights: %w", err)
	}
	return n, nil
}
