package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zaidmukaddam/scira/pkg/database"
	"github.com/zaidmukaddam/scira/pkg/research"
)

var ErrJobNotFound = errors.New("job not found")

// Researcher runs one research request end to end.
type Researcher interface {
	Run(ctx context.Context, prompt string, sink research.Sink) (*research.FinalResearch, error)
}

// Indexer stores the sources of a finished job in the library.
type Indexer interface {
	Index(ctx context.Context, jobID string, sources []research.SearchResult) (int, error)
}

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Service struct {
	DB       *database.PostgresDB
	Research Researcher
	Library  Indexer
	Metrics  *Metrics
	Logger   *slog.Logger

	wg sync.WaitGroup
}

func NewService(db *database.PostgresDB, researcher Researcher, library Indexer) *Service {
	return &Service{
		DB:       db,
		Research: researcher,
		Library:  library,
		Logger:   slog.Default(),
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Prompt    string          `json:"prompt"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	query := `
		INSERT INTO research_jobs (id, prompt, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, prompt, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, uuid.New(), req.Prompt).Scan(
		&job.ID, &job.Prompt, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWorker(context.WithoutCancel(ctx), job.ID, job.Prompt)
	}()

	return job, nil
}

// Wait blocks until every background job started by this service has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

const jobColumns = "id, prompt, status, result, error, created_at, updated_at"

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := "SELECT " + jobColumns + " FROM research_jobs WHERE id = $1"
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Prompt, &job.Status, &job.Result, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the 50 most recent jobs without their results.
func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, prompt, status, error, created_at, updated_at
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Prompt, &job.Status, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Service) runWorker(ctx context.Context, jobID uuid.UUID, prompt string) {
	jobLogger := slog.New(NewDBLogHandler(s.DB, jobID, s.Logger.Handler()))

	if _, err := s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID); err != nil {
		s.Logger.Error("Failed to mark job running", "job_id", jobID, "error", err)
	}

	final, err := s.Research.Run(ctx, prompt, research.LogSink(jobLogger))
	if s.Metrics != nil {
		s.Metrics.observeRun(err)
	}
	if err != nil {
		s.failJob(ctx, jobLogger, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	resultJSON, err := json.Marshal(final)
	if err != nil {
		s.failJob(ctx, jobLogger, jobID, fmt.Sprintf("Failed to encode result: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', result = $2, updated_at = NOW() WHERE id = $1",
		jobID, resultJSON)
	if err != nil {
		jobLogger.Error("Failed to save result", "error", err)
		return
	}

	if s.Library != nil && len(final.Sources) > 0 {
		if _, err := s.Library.Index(ctx, jobID.String(), final.Sources); err != nil {
			jobLogger.Warn("Failed to index sources", "error", err)
		}
	}
}

func (s *Service) failJob(ctx context.Context, logger *slog.Logger, jobID uuid.UUID, reason string) {
	logger.Error(reason)

	if _, err := s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1",
		jobID, reason); err != nil {
		s.Logger.Error("Failed to mark job failed", "job_id", jobID, "error", err)
	}
}
