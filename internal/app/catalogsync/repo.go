// Package catalogsync drives the wiki-to-catalog synchronization job.
package catalogsync

import (
	"context"
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// PageSource fetches page content in batches.
// Implemented by mediawiki.Client.
type PageSource interface {
	FetchBatch(ctx context.Context, titles []domain.PageTitle) (map[domain.PageTitle]domain.PageResult, error)
}

// CatalogStore is the catalog write contract. BulkUpsert isolates per-record
// failures in the results and returns an error only when the store itself
// cannot be reached.
// Implemented by the postgres, mongo and memory catalog stores.
type CatalogStore interface {
	Upsert(ctx context.Context, rec domain.VehicleRecord) (domain.UpsertOutcome, error)
	BulkUpsert(ctx context.Context, recs []domain.VehicleRecord) ([]domain.UpsertResult, error)
}

// ProgressStore persists crawl progress durably.
// Implemented by progress.FileStore.
type ProgressStore interface {
	Save(state domain.ProgressState) error
}

// Recorder receives run counters. Implemented by metrics.Sync.
type Recorder interface {
	BatchFetched(d time.Duration)
	FetchRetried()
	Validated(v domain.Verdict)
	Upserted(o domain.UpsertOutcome)
	Failed(c domain.FailureClass)
}

type nopRecorder struct{}

func (nopRecorder) BatchFetched(time.Duration)    {}
func (nopRecorder) FetchRetried()                 {}
func (nopRecorder) Validated(domain.Verdict)      {}
func (nopRecorder) Upserted(domain.UpsertOutcome) {}
func (nopRecorder) Failed(domain.FailureClass)    {}
