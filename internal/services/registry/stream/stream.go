// Package stream serves sorted asset listings as bounded pages and as lazy,
// finite batch sequences decoupled from any transport encoding.
package stream

import (
	"context"
	"fmt"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
)

const (
	// MaxPageLimit bounds both the page size and the per-batch size of a
	// stream.
	MaxPageLimit = 100
	// maxFetchBatch caps how many rows one storage round trip may return.
	maxFetchBatch = 1000
	// maxStreamOffset guards against a pathological unbounded scan if the
	// backing data is mutated concurrently or non-deterministically ordered.
	maxStreamOffset = 9_999_999
)

// Lister is the sorted read path the query engine pulls assets from.
type Lister interface {
	ListAssets(ctx context.Context, offset int64, limit int, order storage.Order) ([]domain.Asset, error)
}

func validateWindow(offset int64, limit int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}
	if limit < 1 || limit > MaxPageLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, MaxPageLimit)
	}
	return nil
}

// Page returns one bounded page of assets. The limit is validated before any
// storage access.
func Page(ctx context.Context, lister Lister, offset int64, limit int, order storage.Order) ([]domain.Asset, error) {
	if err := validateWindow(offset, limit); err != nil {
		return nil, err
	}
	return lister.ListAssets(ctx, offset, limit, order)
}

// Batch is one served slice of a stream together with the storage offset it
// starts at.
type Batch struct {
	Offset int64
	Assets []domain.Asset
}

// Assets is a lazy, finite, non-restartable sequence of asset batches. The
// consumer drives fetching by calling Next; abandoning iteration simply
// stops further storage round trips. Batches already served are never
// retracted or replayed.
type Assets struct {
	lister    Lister
	order     storage.Order
	limit     int
	fetchSize int

	offset int64
	buffer []domain.Asset
	batch  Batch
	err    error
	done   bool
}

// New validates the window and prepares a stream positioned at offset.
// Storage is fetched in batches of ten times the serving size, capped at the
// round-trip ceiling, to amortize query cost.
func New(lister Lister, offset int64, limit int, order storage.Order) (*Assets, error) {
	if err := validateWindow(offset, limit); err != nil {
		return nil, err
	}
	fetchSize := limit * 10
	if fetchSize > maxFetchBatch {
		fetchSize = maxFetchBatch
	}
	return &Assets{
		lister:    lister,
		order:     order,
		limit:     limit,
		fetchSize: fetchSize,
		offset:    offset,
	}, nil
}

// Next advances the stream to its next batch. It returns false when the
// stream is exhausted or has failed; Err distinguishes the two. After a
// false return the stream stays terminated.
func (a *Assets) Next(ctx context.Context) bool {
	if a == nil || a.done {
		return false
	}
	if err := ctx.Err(); err != nil {
		a.err = err
		a.done = true
		return false
	}

	if len(a.buffer) == 0 {
		if a.offset >= maxStreamOffset {
			a.done = true
			return false
		}
		fetched, err := a.lister.ListAssets(ctx, a.offset, a.fetchSize, a.order)
		if err != nil {
			a.err = err
			a.done = true
			return false
		}
		if len(fetched) == 0 {
			a.done = true
			return false
		}
		a.buffer = fetched
	}

	n := a.limit
	if n > len(a.buffer) {
		n = len(a.buffer)
	}
	a.batch = Batch{Offset: a.offset, Assets: a.buffer[:n:n]}
	a.buffer = a.buffer[n:]
	a.offset += int64(n)
	return true
}

// Batch returns the batch produced by the most recent successful Next call.
func (a *Assets) Batch() Batch {
	return a.batch
}

// Err returns the error that terminated the stream, if any.
func (a *Assets) Err() error {
	if a == nil {
		return nil
	}
	return a.err
}
