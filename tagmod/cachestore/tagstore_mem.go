package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// In-process TagStore. Returned slices are shared with the cache and must not be modified.
type MemTagStore struct {
	Data *expirable.LRU[string, [][]string]
}

var _ TagStore = (*MemTagStore)(nil)

func NewMemTagStore(capacity int, ttl time.Duration) *MemTagStore {
	return &MemTagStore{
		Data: expirable.NewLRU[string, [][]string](capacity, nil, ttl),
	}
}

func (s *MemTagStore) GetTags(ctx context.Context, ref string) ([][]string, bool, error) {
	sets, ok := s.Data.Get(ref)
	return sets, ok, nil
}

func (s *MemTagStore) PutTags(ctx context.Context, ref string, sets [][]string) error {
	if sets == nil {
		sets = [][]string{}
	}
	s.Data.Add(ref, sets)
	return nil
}

func (s *MemTagStore) Purge(ctx context.Context, ref string) error {
	s.Data.Remove(ref)
	return nil
}
