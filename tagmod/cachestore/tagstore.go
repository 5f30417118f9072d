package cachestore

import (
	"context"
)

type TagStore interface {
	// Returns the cached tag sets for a reference, and whether there was an entry at all.
	GetTags(ctx context.Context, ref string) ([][]string, bool, error)
	PutTags(ctx context.Context, ref string, sets [][]string) error
	Purge(ctx context.Context, ref string) error
}
