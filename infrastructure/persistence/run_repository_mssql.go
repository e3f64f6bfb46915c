package persistence

import (
	"database/sql"
	"fmt"
)

var mssqlRunQueries = runQueries{
	vendor: "mssql",
	insert: `INSERT INTO dbo.[ingestion_runs] (id, table_name, status, campaigns_processed, started_at) VALUES (@p1, @p2, @p3, @p4, @p5)`,
	update: `UPDATE dbo.[ingestion_runs] SET status = @p1, campaigns_processed = @p2, error_kind = @p3, error_message = @p4, finished_at = @p5 WHERE id = @p6`,
	latest: `SELECT TOP (@p1) id, table_name, status, campaigns_processed, error_kind, error_message, started_at, finished_at FROM dbo.[ingestion_runs] ORDER BY started_at DESC`,
}

// EnsureRunSchemaMSSQL creates the ingestion_runs table for SQL Server if it does not exist.
func EnsureRunSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.ingestion_runs') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[ingestion_runs] (
        id NVARCHAR(64) NOT NULL PRIMARY KEY,
        table_name NVARCHAR(512) NOT NULL,
        status NVARCHAR(32) NOT NULL,
        campaigns_processed INT NOT NULL DEFAULT 0,
        error_kind NVARCHAR(64) NULL,
        error_message NVARCHAR(MAX) NULL,
        started_at DATETIMEOFFSET NOT NULL,
        finished_at DATETIMEOFFSET NULL
    );
    CREATE INDEX IX_ingestion_runs_started_at ON dbo.[ingestion_runs](started_at DESC);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create ingestion_runs (mssql): %w", err)
	}
	return nil
}

// NewRunRepositoryMSSQL is the SQL Server flavour of the run history.
func NewRunRepositoryMSSQL(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, q: mssqlRunQueries}
}
