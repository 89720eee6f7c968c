package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/stats"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL. The (user_id, entity_id)
// upsert invariant is enforced by a unique constraint plus ON CONFLICT.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
	stats  *stats.UpsertStats
}

// NewPostgresStore creates a new Postgres-backed feedback store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// WithStats attaches upsert statistics tracking. Optional.
func (s *PostgresStore) WithStats(st *stats.UpsertStats) *PostgresStore {
	s.stats = st
	return s
}

// Upsert inserts a record for (userID, entityID) or replaces the existing
// one atomically. The replacement keeps the original id and created_at so
// record age (and therefore trust decay) reflects first submission time.
func (s *PostgresStore) Upsert(ctx context.Context, userID, entityID string, rating int, categories map[string]int) (*Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "feedback", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	var categoriesJSON []byte
	if len(categories) > 0 {
		categoriesJSON, err = json.Marshal(categories)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal categories: %w", err)
		}
	}

	// xmax = 0 distinguishes a fresh insert from a conflict update.
	query := `
		INSERT INTO feedback (id, user_id, entity_id, rating, categories, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, entity_id) DO UPDATE
		SET rating = EXCLUDED.rating,
		    categories = EXCLUDED.categories
		RETURNING id, user_id, entity_id, rating, categories, created_at, (xmax = 0) AS inserted
	`

	var rec Record
	var ratingCol sql.NullInt64
	var categoriesCol []byte
	var inserted bool
	row := s.db.QueryRowContext(ctx, query, uuid.New().String(), userID, entityID, rating, categoriesJSON)
	if scanErr := row.Scan(&rec.ID, &rec.UserID, &rec.EntityID, &ratingCol, &categoriesCol, &rec.CreatedAt, &inserted); scanErr != nil {
		err = fmt.Errorf("failed to upsert feedback: %w", scanErr)
		s.logger.Error("feedback upsert failed",
			slog.String("user_id", userID),
			slog.String("entity_id", entityID),
			slog.String("error", scanErr.Error()))
		return nil, err
	}
	if ratingCol.Valid {
		rec.Rating = int(ratingCol.Int64)
	}
	if len(categoriesCol) > 0 {
		if jsonErr := json.Unmarshal(categoriesCol, &rec.Categories); jsonErr != nil {
			rec.Categories = nil
		}
	}
	if s.stats != nil {
		if inserted {
			s.stats.RecordInsert()
		} else {
			s.stats.RecordUpdate()
		}
	}
	return &rec, nil
}

// ListByUser returns all records submitted by a user.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	query := `
		SELECT id, user_id, entity_id, rating, categories, created_at
		FROM feedback
		WHERE user_id = $1
		ORDER BY created_at
	`
	return s.list(ctx, query, userID)
}

// ListByEntity returns all records for an entity.
func (s *PostgresStore) ListByEntity(ctx context.Context, entityID string) ([]Record, error) {
	query := `
		SELECT id, user_id, entity_id, rating, categories, created_at
		FROM feedback
		WHERE entity_id = $1
		ORDER BY created_at
	`
	return s.list(ctx, query, entityID)
}

// ListAll returns every stored record.
func (s *PostgresStore) ListAll(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, user_id, entity_id, rating, categories, created_at
		FROM feedback
		ORDER BY created_at
	`
	return s.list(ctx, query)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "feedback", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan feedback row: %w", scanErr)
			return nil, err
		}
		result = append(result, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}
	return result, nil
}

// CountByUser returns the number of records a user has submitted.
func (s *PostgresStore) CountByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM feedback WHERE user_id = $1`, userID)
}

// CountAll returns the total number of stored records.
func (s *PostgresStore) CountAll(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM feedback`)
}

// CountDistinctPairs returns the number of unique (user, entity) pairs.
func (s *PostgresStore) CountDistinctPairs(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT (user_id, entity_id)) FROM feedback`)
}

func (s *PostgresStore) count(ctx context.Context, query string, args ...any) (int, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "feedback", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	var n int
	if err = s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

// DistinctUserIDs returns up to limit distinct user IDs with feedback.
func (s *PostgresStore) DistinctUserIDs(ctx context.Context, limit int) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "feedback", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM feedback ORDER BY user_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}
	return ids, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one feedback row, normalizing a NULL or non-numeric
// rating column to 0 so corruption is visible to the validator rather
// than fatal to the read path.
func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var rating sql.NullInt64
	var categoriesJSON []byte

	if err := sc.Scan(&rec.ID, &rec.UserID, &rec.EntityID, &rating, &categoriesJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		rec.Rating = int(rating.Int64)
	}
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &rec.Categories); err != nil {
			// Corrupted categories payload degrades to no sub-ratings.
			rec.Categories = nil
		}
	}
	return &rec, nil
}
