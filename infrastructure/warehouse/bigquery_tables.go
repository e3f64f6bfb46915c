package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kayzen-ingest/domain/model"
	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"
	"kayzen-ingest/infrastructure/metrics"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// allowFieldAddition lets an append introduce columns (fetch_timestamp) that
// the table created from the un-annotated sample record does not have yet.
const allowFieldAddition = "ALLOW_FIELD_ADDITION"

type BigQueryTables struct {
	client *bigquery.Client
}

var _ repository.ITableStore = (*BigQueryTables)(nil)

// NewBigQueryTables opens a BigQuery client billed to projectID. Application
// default credentials are used unless credentialsFile is set.
func NewBigQueryTables(ctx context.Context, projectID, location, credentialsFile string) (*BigQueryTables, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	if location != "" {
		client.Location = location
	}
	return &BigQueryTables{client: client}, nil
}

func (b *BigQueryTables) Close() error {
	return b.client.Close()
}

func (b *BigQueryTables) table(ref model.TableRef) *bigquery.Table {
	return b.client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID)
}

func (b *BigQueryTables) Exists(ctx context.Context, ref model.TableRef) (bool, error) {
	_, err := b.table(ref).Metadata(ctx)
	metrics.ObserveWarehouse("exists", err)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (b *BigQueryTables) CreateFromSample(ctx context.Context, ref model.TableRef, sample model.Campaign, clusterField string) error {
	loader, err := b.newLoader(ref, []model.Campaign{sample})
	if err != nil {
		return err
	}
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteTruncate
	if clusterField != "" {
		loader.Clustering = &bigquery.Clustering{Fields: []string{clusterField}}
	}

	err = runAndWait(ctx, loader)
	metrics.ObserveWarehouse("create", err)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("table", ref.FullyQualified()).Info("Created table from sample campaign")
	return nil
}

func (b *BigQueryTables) DeleteByIDs(ctx context.Context, ref model.TableRef, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := b.client.Query(deleteStatement(ref))
	q.Parameters = []bigquery.QueryParameter{{Name: "ids", Value: ids}}

	err := runAndWait(ctx, q)
	metrics.ObserveWarehouse("delete", err)
	if err != nil {
		return err
	}
	logger.GetLogger().
		WithField("table", ref.FullyQualified()).
		WithField("ids", len(ids)).
		Debug("Deleted existing campaign rows")
	return nil
}

func (b *BigQueryTables) Append(ctx context.Context, ref model.TableRef, rows []model.Campaign) error {
	if len(rows) == 0 {
		return nil
	}
	loader, err := b.newLoader(ref, rows)
	if err != nil {
		return err
	}
	loader.CreateDisposition = bigquery.CreateNever
	loader.WriteDisposition = bigquery.WriteAppend
	loader.SchemaUpdateOptions = []string{allowFieldAddition}

	err = runAndWait(ctx, loader)
	metrics.ObserveWarehouse("append", err)
	if err != nil {
		return err
	}
	logger.GetLogger().
		WithField("table", ref.FullyQualified()).
		WithField("rows", len(rows)).
		Debug("Appended campaign rows")
	return nil
}

func (b *BigQueryTables) newLoader(ref model.TableRef, rows []model.Campaign) (*bigquery.Loader, error) {
	payload, err := encodeRows(rows)
	if err != nil {
		return nil, err
	}
	source := bigquery.NewReaderSource(bytes.NewReader(payload))
	source.SourceFormat = bigquery.JSON
	source.AutoDetect = true
	return b.table(ref).LoaderFrom(source), nil
}

type jobRunner interface {
	Run(ctx context.Context) (*bigquery.Job, error)
}

// runAndWait submits a job and blocks until BigQuery reports it done.
func runAndWait(ctx context.Context, r jobRunner) error {
	job, err := r.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job %s: %w", job.ID(), err)
	}
	return nil
}

// encodeRows renders rows as newline-delimited JSON, the format load jobs read.
func encodeRows(rows []model.Campaign) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("encoding row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// deleteStatement builds the parameterised delete. The id column is cast so
// the statement works whether autodetect typed it INT64 or STRING.
func deleteStatement(ref model.TableRef) string {
	return fmt.Sprintf("DELETE FROM `%s` WHERE CAST(%s AS STRING) IN UNNEST(@ids)",
		ref.FullyQualified(), model.CampaignIDField)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
