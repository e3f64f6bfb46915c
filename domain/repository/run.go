package repository

import (
	"context"
	"time"

	"kayzen-ingest/domain/model"
)

// IRunHistory persists one row per ingestion run.
type IRunHistory interface {
	StartRun(ctx context.Context, run *model.IngestionRun) error
	FinishRun(ctx context.Context, run *model.IngestionRun) error
	LatestRuns(ctx context.Context, limit int) ([]model.IngestionRun, error)
}

// IRunLock serialises invocations that target the same table.
type IRunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// IRunNotifier announces the outcome of a run.
type IRunNotifier interface {
	NotifyRun(ctx context.Context, run *model.IngestionRun) (string, error)
}
