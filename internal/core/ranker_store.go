package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/awais7012/Generative-AI/internal/sparse"
)

// RankerStore owns one trainable BM25 encoder per tenant. The cached model in
// Redis is only a cache: on a miss (or corrupt entry) the model is refit from
// the texts currently stored in the vector index, so eviction never silently
// degrades retrieval quality.
type RankerStore struct {
	cache       ModelCache
	idx         VectorIndex
	ttl         time.Duration
	rescanLimit int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRankerStore(cache ModelCache, idx VectorIndex, ttl time.Duration, rescanLimit int) *RankerStore {
	if rescanLimit <= 0 {
		rescanLimit = 10000
	}
	return &RankerStore{
		cache:       cache,
		idx:         idx,
		ttl:         ttl,
		rescanLimit: rescanLimit,
		locks:       make(map[string]*sync.Mutex),
	}
}

// tenantLock serializes retraining per tenant so overlapping ingestion
// batches cannot drop each other's texts in a last-write-wins race.
func (s *RankerStore) tenantLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// GetOrCreate returns the tenant's encoder, loading the persisted model or
// lazily rebuilding it from the index when the cache entry is missing.
func (s *RankerStore) GetOrCreate(ctx context.Context, userID string) (*sparse.Encoder, error) {
	data, err := s.cache.GetModel(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data != nil {
		enc, err := sparse.Unmarshal(data)
		if err == nil {
			return enc, nil
		}
		log.Printf("Corrupt ranker model for user %s, refitting from index: %v", userID, err)
	}

	lock := s.tenantLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.rebuild(ctx, userID, nil)
}

// Retrain refits the tenant's encoder on the union of the texts currently in
// the index and newTexts, persists it with a refreshed expiry, and returns
// it. Calls for the same tenant are serialized.
func (s *RankerStore) Retrain(ctx context.Context, userID string, newTexts []string) (*sparse.Encoder, error) {
	lock := s.tenantLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.rebuild(ctx, userID, newTexts)
}

func (s *RankerStore) rebuild(ctx context.Context, userID string, newTexts []string) (*sparse.Encoder, error) {
	// Full rescan of the tenant's stored texts on every rebuild. This is a
	// known scalability ceiling at large corpora; replacing it needs an
	// incremental append log, not a smaller page size.
	existing, err := s.idx.ListTexts(ctx, userID, s.rescanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rescan index for user %s: %w", userID, err)
	}

	corpus := make([]string, 0, len(existing)+len(newTexts))
	corpus = append(corpus, existing...)
	corpus = append(corpus, newTexts...)

	enc := sparse.NewEncoder()
	if len(corpus) == 0 {
		// Nothing stored yet; an unfitted encoder degrades to dense-only.
		return enc, nil
	}
	if err := enc.Fit(corpus); err != nil {
		return nil, fmt.Errorf("failed to fit ranker for user %s: %w", userID, err)
	}

	data, err := enc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ranker for user %s: %w", userID, err)
	}
	if err := s.cache.SetModel(ctx, userID, data, s.ttl); err != nil {
		// The cache is not the system of record; a failed persist only costs
		// a refit on the next miss.
		log.Printf("Failed to persist ranker model for user %s: %v", userID, err)
	}
	return enc, nil
}
