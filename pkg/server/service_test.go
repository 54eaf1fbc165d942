package server

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidmukaddam/scira/pkg/database"
	"github.com/zaidmukaddam/scira/pkg/research"
)

func newTestService(t *testing.T, researcher Researcher, indexer Indexer) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewService(database.NewWithPool(mock), researcher, indexer)
	svc.Logger = quietLogger()
	svc.Metrics = NewMetrics()
	return svc, mock
}

func expectInsertJob(mock pgxmock.PgxPoolIface, id uuid.UUID, prompt string) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO research_jobs")).
		WithArgs(pgxmock.AnyArg(), prompt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "prompt", "status", "created_at", "updated_at"}).
			AddRow(id, prompt, StatusPending, now, now))
}

func TestCreateJobCompletes(t *testing.T) {
	final := &research.FinalResearch{
		Text:    "summary",
		Sources: []research.SearchResult{{Title: "A", URL: "https://a", Content: "text..."}},
		Charts:  []research.ChartArtifact{},
	}
	researcher := &fakeResearcher{
		emit:  []research.Annotation{{Status: &research.Status{Title: "Planning research"}}},
		final: final,
	}
	indexer := &fakeIndexer{}
	svc, mock := newTestService(t, researcher, indexer)

	id := uuid.New()
	expectInsertJob(mock, id, "quantum batteries")
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'running'")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO research_logs")).
		WithArgs(id, pgxmock.AnyArg(), "INFO", "Planning research", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	job, err := svc.CreateJob(context.Background(), CreateJobRequest{Prompt: "quantum batteries"})
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	svc.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "quantum batteries", researcher.prompt)
	assert.Equal(t, []string{id.String()}, indexer.jobIDs)
	assert.Equal(t, final.Sources, indexer.sources[0])
}

func TestCreateJobFails(t *testing.T) {
	researcher := &fakeResearcher{err: errBoom}
	indexer := &fakeIndexer{}
	svc, mock := newTestService(t, researcher, indexer)

	id := uuid.New()
	expectInsertJob(mock, id, "prompt")
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'running'")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO research_logs")).
		WithArgs(id, pgxmock.AnyArg(), "ERROR", "Research failed: boom", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'failed'")).
		WithArgs(id, "Research failed: boom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err := svc.CreateJob(context.Background(), CreateJobRequest{Prompt: "prompt"})
	require.NoError(t, err)

	svc.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, indexer.jobIDs)
}

func TestCreateJobInsertError(t *testing.T) {
	svc, mock := newTestService(t, &fakeResearcher{}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO research_jobs")).
		WithArgs(pgxmock.AnyArg(), "prompt").
		WillReturnError(errBoom)

	_, err := svc.CreateJob(context.Background(), CreateJobRequest{Prompt: "prompt"})
	assert.ErrorContains(t, err, "failed to create job")
	svc.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob(t *testing.T) {
	svc, mock := newTestService(t, nil, nil)
	id := uuid.New()
	now := time.Now()
	result := json.RawMessage(`{"text":"done"}`)

	mock.ExpectQuery(regexp.QuoteMeta("FROM research_jobs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "prompt", "status", "result", "error", "created_at", "updated_at"}).
			AddRow(id, "prompt", StatusCompleted, result, nil, now, now))

	job, err := svc.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.JSONEq(t, `{"text":"done"}`, string(job.Result))
	assert.Nil(t, job.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobNotFound(t *testing.T) {
	svc, mock := newTestService(t, nil, nil)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM research_jobs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "prompt", "status", "result", "error", "created_at", "updated_at"}))

	_, err := svc.GetJob(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestListJobsAndLogs(t *testing.T) {
	svc, mock := newTestService(t, nil, nil)
	id := uuid.New()
	now := time.Now()
	reason := "Research failed: boom"

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "prompt", "status", "error", "created_at", "updated_at"}).
			AddRow(id, "one", StatusFailed, &reason, now, now).
			AddRow(uuid.New(), "two", StatusRunning, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM research_logs")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "timestamp", "level", "message", "metadata"}).
			AddRow(1, now, "ERROR", reason, []byte(`{"job_id":"x"}`)))

	jobs, err := svc.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.NotNil(t, jobs[0].Error)
	assert.Equal(t, reason, *jobs[0].Error)
	assert.Nil(t, jobs[1].Error)

	logs, err := svc.GetJobLogs(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, reason, logs[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}
