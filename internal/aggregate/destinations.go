package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/tracing"
)

// StaticResolver maps destinations to entity IDs from a fixed table.
// Useful for tests and for deployments that inject the mapping at startup.
type StaticResolver struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewStaticResolver creates a resolver seeded with the given mapping.
// The mapping may be nil.
func NewStaticResolver(entries map[string][]string) *StaticResolver {
	if entries == nil {
		entries = make(map[string][]string)
	}
	return &StaticResolver{entries: entries}
}

// Register associates an entity with a destination.
func (r *StaticResolver) Register(destination, entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[destination] = append(r.entries[destination], entityID)
}

// ListEntityIDs returns the entity IDs registered under destination.
func (r *StaticResolver) ListEntityIDs(ctx context.Context, destination string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.entries[destination]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// PostgresResolver resolves destinations from the entity_destinations table.
type PostgresResolver struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresResolver creates a Postgres-backed destination resolver.
func NewPostgresResolver(db *sql.DB, logger *slog.Logger) *PostgresResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResolver{db: db, logger: logger}
}

// ListEntityIDs returns the entity IDs mapped to destination.
func (r *PostgresResolver) ListEntityIDs(ctx context.Context, destination string) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "entity_destinations", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT entity_id FROM entity_destinations WHERE destination = $1 ORDER BY entity_id`,
		destination)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity destinations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entity destinations: %w", err)
	}
	return ids, nil
}
