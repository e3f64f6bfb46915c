package repository

import (
	"context"

	"kayzen-ingest/domain/model"
)

// ITableStore is the set of warehouse operations the campaign loader needs.
type ITableStore interface {
	// Exists reports whether the table is present. Only a genuine not-found
	// answer yields (false, nil).
	Exists(ctx context.Context, ref model.TableRef) (bool, error)
	// CreateFromSample creates or replaces the table from one record with
	// schema autodetection, clustered on clusterField.
	CreateFromSample(ctx context.Context, ref model.TableRef, sample model.Campaign, clusterField string) error
	// DeleteByIDs removes every row whose id is in ids and waits for completion.
	DeleteByIDs(ctx context.Context, ref model.TableRef, ids []string) error
	// Append adds rows without touching existing ones and waits for completion.
	Append(ctx context.Context, ref model.TableRef, rows []model.Campaign) error
}
