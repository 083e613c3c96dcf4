package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
)

type fakeLister struct {
	assets  []domain.Asset
	calls   int
	failOn  int
	failErr error
}

func (f *fakeLister) ListAssets(_ context.Context, offset int64, limit int, _ storage.Order) ([]domain.Asset, error) {
	f.calls++
	if f.failOn > 0 && f.calls >= f.failOn {
		return nil, f.failErr
	}
	if offset >= int64(len(f.assets)) {
		return nil, nil
	}
	end := offset + int64(limit)
	if end > int64(len(f.assets)) {
		end = int64(len(f.assets))
	}
	return f.assets[offset:end], nil
}

func makeAssets(n int) []domain.Asset {
	assets := make([]domain.Asset, 0, n)
	for i := 0; i < n; i++ {
		assets = append(assets, domain.Asset{ID: fmt.Sprintf("asset-%03d", i)})
	}
	return assets
}

func TestPageValidatesWindowBeforeStorage(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(5)}
	cases := []struct {
		name   string
		offset int64
		limit  int
	}{
		{name: "zero limit", offset: 0, limit: 0},
		{name: "limit above cap", offset: 0, limit: MaxPageLimit + 1},
		{name: "negative offset", offset: -1, limit: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Page(context.Background(), lister, tc.offset, tc.limit, storage.OrderAscending)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if lister.calls != 0 {
		t.Fatalf("storage must not be reached, got %d calls", lister.calls)
	}
}

func TestPageReturnsWindow(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(5)}
	assets, err := Page(context.Background(), lister, 2, 2, storage.OrderAscending)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(assets) != 2 || assets[0].ID != "asset-002" {
		t.Fatalf("window mismatch: %+v", assets)
	}
}

func TestStreamBatchesWithoutGapsOrDuplicates(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(25)}
	assets, err := New(lister, 0, 10, storage.OrderAscending)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}

	var (
		batches []Batch
		seen    = map[string]struct{}{}
	)
	for assets.Next(context.Background()) {
		batch := assets.Batch()
		batches = append(batches, batch)
		for _, asset := range batch.Assets {
			if _, dup := seen[asset.ID]; dup {
				t.Fatalf("duplicate asset %s", asset.ID)
			}
			seen[asset.ID] = struct{}{}
		}
	}
	if err := assets.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	wantSizes := []int{10, 10, 5}
	wantOffsets := []int64{0, 10, 20}
	for i, batch := range batches {
		if len(batch.Assets) != wantSizes[i] {
			t.Fatalf("batch %d size = %d, want %d", i, len(batch.Assets), wantSizes[i])
		}
		if batch.Offset != wantOffsets[i] {
			t.Fatalf("batch %d offset = %d, want %d", i, batch.Offset, wantOffsets[i])
		}
	}
	if len(seen) != 25 {
		t.Fatalf("expected all 25 assets served, got %d", len(seen))
	}
}

func TestStreamValidatesWindow(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(5)}
	if _, err := New(lister, 0, 0, storage.OrderAscending); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := New(lister, 0, MaxPageLimit+1, storage.OrderAscending); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if lister.calls != 0 {
		t.Fatalf("storage must not be reached, got %d calls", lister.calls)
	}
}

func TestStreamAmortizesFetches(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(25)}
	assets, err := New(lister, 0, 10, storage.OrderAscending)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	for assets.Next(context.Background()) {
	}
	// One fetch of 100 covers all 25 rows, one more detects exhaustion.
	if lister.calls != 2 {
		t.Fatalf("expected 2 storage round trips, got %d", lister.calls)
	}
}

func TestStreamMidFetchErrorTerminates(t *testing.T) {
	storageErr := errors.New("connection reset")
	lister := &fakeLister{assets: makeAssets(15), failOn: 2, failErr: storageErr}
	assets, err := New(lister, 0, 1, storage.OrderAscending)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}

	served := 0
	for assets.Next(context.Background()) {
		served += len(assets.Batch().Assets)
	}
	if !errors.Is(assets.Err(), storageErr) {
		t.Fatalf("expected storage error, got %v", assets.Err())
	}
	// The first fetch of ten rows was served in full before the failure.
	if served != 10 {
		t.Fatalf("expected 10 assets served before failure, got %d", served)
	}
	if assets.Next(context.Background()) {
		t.Fatal("stream must stay terminated after failure")
	}
}

func TestStreamStopsAtOffsetCeiling(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(5)}
	assets, err := New(lister, maxStreamOffset, 10, storage.OrderAscending)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	if assets.Next(context.Background()) {
		t.Fatal("stream at the ceiling must not fetch")
	}
	if assets.Err() != nil {
		t.Fatalf("ceiling is exhaustion, not failure: %v", assets.Err())
	}
	if lister.calls != 0 {
		t.Fatalf("storage must not be reached, got %d calls", lister.calls)
	}
}

func TestStreamHonorsContextCancellation(t *testing.T) {
	lister := &fakeLister{assets: makeAssets(5)}
	assets, err := New(lister, 0, 2, storage.OrderAscending)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if assets.Next(ctx) {
		t.Fatal("cancelled context must terminate the stream")
	}
	if !errors.Is(assets.Err(), context.Canceled) {
		t.Fatalf("expected context error, got %v", assets.Err())
	}
}
