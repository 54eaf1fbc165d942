package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/zaidmukaddam/scira/pkg/library"
	"github.com/zaidmukaddam/scira/pkg/research"
	"github.com/zaidmukaddam/scira/pkg/wrapped"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResearcher struct {
	emit   []research.Annotation
	final  *research.FinalResearch
	err    error
	prompt string
}

func (f *fakeResearcher) Run(ctx context.Context, prompt string, sink research.Sink) (*research.FinalResearch, error) {
	f.prompt = prompt
	for _, a := range f.emit {
		sink.Emit(a)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.final, nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	jobIDs  []string
	sources [][]research.SearchResult
	err     error
}

func (f *fakeIndexer) Index(ctx context.Context, jobID string, sources []research.SearchResult) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobIDs = append(f.jobIDs, jobID)
	f.sources = append(f.sources, sources)
	return len(sources), f.err
}

type fakeBuilder struct {
	summary  *wrapped.Summary
	err      error
	username string
	year     int
}

func (f *fakeBuilder) Build(ctx context.Context, username string, year int) (*wrapped.Summary, error) {
	f.username, f.year = username, year
	return f.summary, f.err
}

type fakeLibrary struct {
	hits  []library.Hit
	err   error
	query string
	k     int
	jobID string
}

func (f *fakeLibrary) Search(ctx context.Context, query string, k int, jobID string) ([]library.Hit, error) {
	f.query, f.k, f.jobID = query, k, jobID
	return f.hits, f.err
}

type fakeTools struct {
	hits    []research.SearchHit
	output  *research.CodeRunnerOutput
	codeErr error
}

func (f *fakeTools) WebSearch(ctx context.Context, query, category string) []research.SearchHit {
	return f.hits
}

func (f *fakeTools) RunCode(ctx context.Context, title, code string) (*research.CodeRunnerOutput, error) {
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.output, nil
}

var errBoom = errors.New("boom")
