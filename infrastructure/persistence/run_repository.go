package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"kayzen-ingest/domain/model"
	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"
)

// runQueries holds the vendor specific statements of RunRepository.
type runQueries struct {
	vendor string
	insert string
	update string
	latest string
}

var postgresRunQueries = runQueries{
	vendor: "postgres",
	insert: `INSERT INTO ingestion_runs (id, table_name, status, campaigns_processed, started_at) VALUES ($1, $2, $3, $4, $5)`,
	update: `UPDATE ingestion_runs SET status = $1, campaigns_processed = $2, error_kind = $3, error_message = $4, finished_at = $5 WHERE id = $6`,
	latest: `SELECT id, table_name, status, campaigns_processed, error_kind, error_message, started_at, finished_at FROM ingestion_runs ORDER BY started_at DESC LIMIT $1`,
}

// EnsureRunSchema creates the ingestion_runs table if it does not exist.
func EnsureRunSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ingestion_runs (
        id TEXT PRIMARY KEY,
        table_name TEXT NOT NULL,
        status TEXT NOT NULL,
        campaigns_processed INTEGER NOT NULL DEFAULT 0,
        error_kind TEXT,
        error_message TEXT,
        started_at TIMESTAMPTZ NOT NULL,
        finished_at TIMESTAMPTZ
    )`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create ingestion_runs table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started_at ON ingestion_runs(started_at DESC)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_ingestion_runs_started_at")
	}
	return nil
}

// RunRepository stores ingestion runs using database/sql.
type RunRepository struct {
	db *sql.DB
	q  runQueries
}

var _ repository.IRunHistory = (*RunRepository)(nil)

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, q: postgresRunQueries}
}

func (r *RunRepository) StartRun(ctx context.Context, run *model.IngestionRun) error {
	_, err := r.db.ExecContext(ctx, r.q.insert, run.ID, run.Table, run.Status, run.CampaignsProcessed, run.StartedAt)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("vendor", r.q.vendor).Error("insert ingestion run failed")
	}
	return err
}

func (r *RunRepository) FinishRun(ctx context.Context, run *model.IngestionRun) error {
	res, err := r.db.ExecContext(ctx, r.q.update,
		run.Status, run.CampaignsProcessed, nullString(run.ErrorKind), run.ErrorMessage, run.FinishedAt, run.ID)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("vendor", r.q.vendor).Error("update ingestion run failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("ingestion run %s not found", run.ID)
	}
	return nil
}

func (r *RunRepository) LatestRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, r.q.latest, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.IngestionRun, 0, limit)
	for rows.Next() {
		var (
			run        model.IngestionRun
			errorKind  sql.NullString
			errorMsg   sql.NullString
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Table, &run.Status, &run.CampaignsProcessed, &errorKind, &errorMsg, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.ErrorKind = errorKind.String
		if errorMsg.Valid {
			run.ErrorMessage = &errorMsg.String
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
