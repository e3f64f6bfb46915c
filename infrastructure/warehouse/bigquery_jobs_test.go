package warehouse

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"kayzen-ingest/domain/model"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"
)

var jobsTestRef = model.TableRef{ProjectID: "p", DatasetID: "d", TableID: "t"}

type insertedJob struct {
	job     *bq.Job
	payload []byte
}

// fakeBigQuery answers the REST calls the adapter makes and records every
// inserted job. tableStatus drives the tables.get answer.
type fakeBigQuery struct {
	t           *testing.T
	tableStatus int

	mu   sync.Mutex
	jobs []insertedJob
}

func (f *fakeBigQuery) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	p := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(p, "/projects/p/datasets/d/tables/t"):
		f.serveTable(w)
	case r.Method == http.MethodPost && strings.HasSuffix(p, "/projects/p/jobs"):
		f.serveInsert(w, r)
	case r.Method == http.MethodGet && strings.Contains(p, "/projects/p/queries/"):
		_ = json.NewEncoder(w).Encode(&bq.GetQueryResultsResponse{
			JobComplete:  true,
			JobReference: &bq.JobReference{ProjectId: "p", JobId: path.Base(p)},
		})
	case r.Method == http.MethodGet && strings.Contains(p, "/projects/p/jobs/"):
		_ = json.NewEncoder(w).Encode(&bq.Job{
			JobReference: &bq.JobReference{ProjectId: "p", JobId: path.Base(p)},
			Status:       &bq.JobStatus{State: "DONE"},
		})
	default:
		assert.Failf(f.t, "unexpected request", "%s %s", r.Method, r.URL)
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeBigQuery) serveTable(w http.ResponseWriter) {
	switch f.tableStatus {
	case http.StatusOK:
		_ = json.NewEncoder(w).Encode(&bq.Table{
			TableReference: &bq.TableReference{ProjectId: "p", DatasetId: "d", TableId: "t"},
		})
	case http.StatusNotFound:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not found: Table p:d.t","errors":[{"reason":"notFound","message":"Not found: Table p:d.t"}]}}`)
	default:
		w.WriteHeader(f.tableStatus)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"Access Denied","errors":[{"reason":"accessDenied","message":"Access Denied"}]}}`)
	}
}

// serveInsert accepts both plain query jobs and multipart load uploads.
func (f *fakeBigQuery) serveInsert(w http.ResponseWriter, r *http.Request) {
	var (
		job     bq.Job
		payload []byte
	)
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	assert.NoError(f.t, err)

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		if !assert.NoError(f.t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.NoError(f.t, json.NewDecoder(meta).Decode(&job))
		media, err := mr.NextPart()
		if assert.NoError(f.t, err) {
			payload, err = io.ReadAll(media)
			assert.NoError(f.t, err)
		}
	} else {
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&job))
	}

	f.mu.Lock()
	f.jobs = append(f.jobs, insertedJob{job: &job, payload: payload})
	f.mu.Unlock()

	job.Status = &bq.JobStatus{State: "DONE"}
	_ = json.NewEncoder(w).Encode(&job)
}

func (f *fakeBigQuery) insertedJobs() []insertedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]insertedJob(nil), f.jobs...)
}

func newFakeTables(t *testing.T, tableStatus int) (*BigQueryTables, *fakeBigQuery) {
	t.Helper()
	fake := &fakeBigQuery{t: t, tableStatus: tableStatus}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := bigquery.NewClient(context.Background(), "p",
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &BigQueryTables{client: client}, fake
}

func TestBigQueryTables_Exists(t *testing.T) {
	tables, _ := newFakeTables(t, http.StatusOK)
	exists, err := tables.Exists(context.Background(), jobsTestRef)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBigQueryTables_ExistsNotFoundMeansMissing(t *testing.T) {
	tables, _ := newFakeTables(t, http.StatusNotFound)
	exists, err := tables.Exists(context.Background(), jobsTestRef)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBigQueryTables_ExistsForbiddenIsAnError(t *testing.T) {
	tables, _ := newFakeTables(t, http.StatusForbidden)
	exists, err := tables.Exists(context.Background(), jobsTestRef)
	require.Error(t, err)
	assert.False(t, exists)
	assert.False(t, isNotFound(err))
	assert.Contains(t, err.Error(), "403")
}

func TestBigQueryTables_CreateFromSampleJob(t *testing.T) {
	tables, fake := newFakeTables(t, http.StatusNotFound)
	sample := model.Campaign{"id": model.Int(1), "name": model.String("alpha")}

	require.NoError(t, tables.CreateFromSample(context.Background(), jobsTestRef, sample, model.CampaignIDField))

	jobs := fake.insertedJobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].job.Configuration)
	load := jobs[0].job.Configuration.Load
	require.NotNil(t, load)

	assert.True(t, load.Autodetect)
	assert.Equal(t, "NEWLINE_DELIMITED_JSON", load.SourceFormat)
	assert.Equal(t, "CREATE_IF_NEEDED", load.CreateDisposition)
	assert.Equal(t, "WRITE_TRUNCATE", load.WriteDisposition)
	require.NotNil(t, load.Clustering)
	assert.Equal(t, []string{"id"}, load.Clustering.Fields)
	assert.Empty(t, load.SchemaUpdateOptions)
	require.NotNil(t, load.DestinationTable)
	assert.Equal(t, "t", load.DestinationTable.TableId)
	assert.JSONEq(t, `{"id":1,"name":"alpha"}`, string(jobs[0].payload))
}

func TestBigQueryTables_AppendJob(t *testing.T) {
	tables, fake := newFakeTables(t, http.StatusOK)
	rows := []model.Campaign{
		{"id": model.Int(1), "fetch_timestamp": model.String("2024-05-01T10:00:00.000000Z")},
		{"id": model.Int(2), "fetch_timestamp": model.String("2024-05-01T10:00:00.000000Z")},
	}

	require.NoError(t, tables.Append(context.Background(), jobsTestRef, rows))

	jobs := fake.insertedJobs()
	require.Len(t, jobs, 1)
	load := jobs[0].job.Configuration.Load
	require.NotNil(t, load)

	assert.True(t, load.Autodetect)
	assert.Equal(t, "CREATE_NEVER", load.CreateDisposition)
	assert.Equal(t, "WRITE_APPEND", load.WriteDisposition)
	assert.Equal(t, []string{"ALLOW_FIELD_ADDITION"}, load.SchemaUpdateOptions)
	assert.Nil(t, load.Clustering)

	expected, err := encodeRows(rows)
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(jobs[0].payload))
}

func TestBigQueryTables_DeleteByIDsJob(t *testing.T) {
	tables, fake := newFakeTables(t, http.StatusOK)

	require.NoError(t, tables.DeleteByIDs(context.Background(), jobsTestRef, []string{"1", "2"}))

	jobs := fake.insertedJobs()
	require.Len(t, jobs, 1)
	q := jobs[0].job.Configuration.Query
	require.NotNil(t, q)

	assert.Equal(t, "DELETE FROM `p.d.t` WHERE CAST(id AS STRING) IN UNNEST(@ids)", q.Query)
	require.Len(t, q.QueryParameters, 1)
	param := q.QueryParameters[0]
	assert.Equal(t, "ids", param.Name)
	assert.Equal(t, "ARRAY", param.ParameterType.Type)
	require.NotNil(t, param.ParameterType.ArrayType)
	assert.Equal(t, "STRING", param.ParameterType.ArrayType.Type)

	var values []string
	for _, v := range param.ParameterValue.ArrayValues {
		values = append(values, v.Value)
	}
	assert.Equal(t, []string{"1", "2"}, values)
}

func TestBigQueryTables_EmptyBatchesSendNothing(t *testing.T) {
	tables, fake := newFakeTables(t, http.StatusOK)

	require.NoError(t, tables.DeleteByIDs(context.Background(), jobsTestRef, nil))
	require.NoError(t, tables.Append(context.Background(), jobsTestRef, nil))
	assert.Empty(t, fake.insertedJobs())
}
