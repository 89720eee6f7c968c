package feedback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/stats"
)

// Store defines the read/write contract the engine needs over raw
// feedback rows. Writes are upserts keyed by (user, entity); the store
// guarantees at most one record per pair.
type Store interface {
	// Upsert inserts a record for (userID, entityID) or replaces the
	// existing one. Returns the stored record.
	Upsert(ctx context.Context, userID, entityID string, rating int, categories map[string]int) (*Record, error)

	// ListByUser returns all records submitted by a user.
	ListByUser(ctx context.Context, userID string) ([]Record, error)

	// ListByEntity returns all records for an entity.
	ListByEntity(ctx context.Context, entityID string) ([]Record, error)

	// ListAll returns every stored record. Used by category aggregation
	// and system-wide audits only, never on the request hot path.
	ListAll(ctx context.Context) ([]Record, error)

	// CountByUser returns the number of records a user has submitted.
	CountByUser(ctx context.Context, userID string) (int, error)

	// CountAll returns the total number of stored records.
	CountAll(ctx context.Context) (int, error)

	// CountDistinctPairs returns the number of unique (user, entity) pairs.
	CountDistinctPairs(ctx context.Context) (int, error)

	// DistinctUserIDs returns up to limit distinct user IDs that have
	// submitted feedback.
	DistinctUserIDs(ctx context.Context, limit int) ([]string, error)
}

// InMemoryStore is an in-memory implementation of Store for testing.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record // userID -> entityID -> record
	stats   *stats.UpsertStats
}

// NewInMemoryStore creates a new in-memory feedback store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]map[string]Record),
	}
}

// WithStats attaches upsert statistics tracking. Optional.
func (s *InMemoryStore) WithStats(st *stats.UpsertStats) *InMemoryStore {
	s.stats = st
	return s
}

// Upsert inserts or replaces the record for (userID, entityID).
func (s *InMemoryStore) Upsert(ctx context.Context, userID, entityID string, rating int, categories map[string]int) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byEntity, ok := s.records[userID]
	if !ok {
		byEntity = make(map[string]Record)
		s.records[userID] = byEntity
	}

	rec := Record{
		UserID:    userID,
		EntityID:  entityID,
		Rating:    rating,
		CreatedAt: time.Now(),
	}
	if existing, ok := byEntity[entityID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if s.stats != nil {
			s.stats.RecordUpdate()
		}
	} else {
		rec.ID = uuid.New().String()
		if s.stats != nil {
			s.stats.RecordInsert()
		}
	}
	if len(categories) > 0 {
		rec.Categories = make(map[string]int, len(categories))
		for k, v := range categories {
			rec.Categories[k] = v
		}
	}
	byEntity[entityID] = rec
	return &rec, nil
}

// ListByUser returns all records submitted by a user.
func (s *InMemoryStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byEntity := s.records[userID]
	result := make([]Record, 0, len(byEntity))
	for _, rec := range byEntity {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntityID < result[j].EntityID })
	return result, nil
}

// ListByEntity returns all records for an entity.
func (s *InMemoryStore) ListByEntity(ctx context.Context, entityID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Record
	for _, byEntity := range s.records {
		for _, rec := range byEntity {
			if rec.EntityID == entityID {
				result = append(result, rec)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// ListAll returns every stored record.
func (s *InMemoryStore) ListAll(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Record
	for _, byEntity := range s.records {
		for _, rec := range byEntity {
			result = append(result, rec)
		}
	}
	return result, nil
}

// CountByUser returns the number of records a user has submitted.
func (s *InMemoryStore) CountByUser(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[userID]), nil
}

// CountAll returns the total number of stored records.
func (s *InMemoryStore) CountAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, byEntity := range s.records {
		total += len(byEntity)
	}
	return total, nil
}

// CountDistinctPairs returns the number of unique (user, entity) pairs.
// Diverges from CountAll only when the upsert invariant has been violated
// by a write-path bug (or by a test constructing duplicate rows).
func (s *InMemoryStore) CountDistinctPairs(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pairs := make(map[string]struct{})
	for userID, byEntity := range s.records {
		for _, rec := range byEntity {
			pairs[userID+"\x00"+rec.EntityID] = struct{}{}
		}
	}
	return len(pairs), nil
}

// DistinctUserIDs returns up to limit distinct user IDs.
func (s *InMemoryStore) DistinctUserIDs(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for userID := range s.records {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Put stores a raw record directly, bypassing upsert key semantics.
// Intended for tests that need to construct duplicate or corrupted rows.
func (s *InMemoryStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byEntity, ok := s.records[rec.UserID]
	if !ok {
		byEntity = make(map[string]Record)
		s.records[rec.UserID] = byEntity
	}
	key := rec.EntityID
	if rec.ID != "" {
		// Allow multiple rows per entity by keying on record ID when set,
		// so the validator's duplicate detection can be exercised.
		key = rec.EntityID + "\x00" + rec.ID
	}
	byEntity[key] = rec
}
