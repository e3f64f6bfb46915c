package model

import (
	"fmt"
	"strings"
	"time"
)

type Credentials struct {
	APIKey    string
	APISecret string
	Username  string
	Password  string
}

// TableRef identifies the destination warehouse table.
type TableRef struct {
	ProjectID string `json:"projectId"`
	DatasetID string `json:"datasetId"`
	TableID   string `json:"tableId"`
}

func (t TableRef) FullyQualified() string {
	return fmt.Sprintf("%s.%s.%s", t.ProjectID, t.DatasetID, t.TableID)
}

// ValidateSettings fails with a ConfigurationError naming, by environment
// variable, every required setting that is empty or blank.
func ValidateSettings(creds Credentials, dest TableRef) error {
	required := []struct {
		env   string
		value string
	}{
		{"KAYZEN_API_KEY", creds.APIKey},
		{"KAYZEN_API_SECRET", creds.APISecret},
		{"KAYZEN_USERNAME", creds.Username},
		{"KAYZEN_PASSWORD", creds.Password},
		{"GCP_PROJECT_ID", dest.ProjectID},
		{"BIGQUERY_DATASET_ID", dest.DatasetID},
		{"BIGQUERY_TABLE_ID", dest.TableID},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// IngestionRun records one invocation of the ingestion job.
type IngestionRun struct {
	ID                 string     `json:"id"`
	Table              string     `json:"table"`
	Status             string     `json:"status"`
	CampaignsProcessed int        `json:"campaignsProcessed"`
	ErrorKind          string     `json:"errorKind,omitempty"`
	ErrorMessage       *string    `json:"errorMessage,omitempty"`
	StartedAt          time.Time  `json:"startedAt"`
	FinishedAt         *time.Time `json:"finishedAt,omitempty"`
}
