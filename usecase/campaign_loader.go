package usecase

import (
	"context"
	"time"

	"kayzen-ingest/domain/model"
	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"
)

// FetchTimestampLayout is the UTC layout stamped into fetch_timestamp.
const FetchTimestampLayout = "2006-01-02T15:04:05.000000Z"

type ICampaignLoader interface {
	Load(ctx context.Context, campaigns []model.Campaign, ref model.TableRef) error
}

type campaignLoader struct {
	tables repository.ITableStore
	now    func() time.Time
}

func NewCampaignLoader(tables repository.ITableStore) ICampaignLoader {
	return NewCampaignLoaderWithClock(tables, time.Now)
}

// NewCampaignLoaderWithClock uses now as the source of fetch_timestamp.
func NewCampaignLoaderWithClock(tables repository.ITableStore, now func() time.Time) ICampaignLoader {
	return &campaignLoader{tables: tables, now: now}
}

// Load makes the table hold exactly one current row per campaign id of the
// batch: the table is created on first use, rows sharing an id with the batch
// are deleted, then the whole batch is appended. Records are annotated with
// fetch_timestamp in place.
func (l *campaignLoader) Load(ctx context.Context, campaigns []model.Campaign, ref model.TableRef) error {
	table := ref.FullyQualified()
	if len(campaigns) == 0 {
		logger.GetLogger().WithField("table", table).Info("No campaigns to load")
		return nil
	}

	exists, err := l.tables.Exists(ctx, ref)
	if err != nil {
		return &model.LoaderError{Op: "exists", Table: table, Err: err}
	}
	if !exists {
		logger.GetLogger().WithField("table", table).Info("Table not found, creating it")
		if err := l.tables.CreateFromSample(ctx, ref, campaigns[0], model.CampaignIDField); err != nil {
			return &model.LoaderError{Op: "create", Table: table, Err: err}
		}
	}

	fetchedAt := l.now().UTC().Format(FetchTimestampLayout)
	for _, c := range campaigns {
		c.SetFetchTimestamp(fetchedAt)
	}

	ids := model.DistinctIDs(campaigns)
	if len(ids) > 0 {
		if err := l.tables.DeleteByIDs(ctx, ref, ids); err != nil {
			return &model.LoaderError{Op: "delete", Table: table, Err: err}
		}
	}

	if err := l.tables.Append(ctx, ref, campaigns); err != nil {
		return &model.LoaderError{Op: "append", Table: table, Err: err}
	}

	logger.GetLogger().
		WithField("table", table).
		WithField("campaigns", len(campaigns)).
		WithField("replaced", len(ids)).
		WithField("fetch_timestamp", fetchedAt).
		Info("Campaigns loaded")
	return nil
}
