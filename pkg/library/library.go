// Package library keeps the sources of completed research jobs searchable.
package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/zaidmukaddam/scira/pkg/research"
	"github.com/zaidmukaddam/scira/pkg/vectorstore"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Store interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, filter map[string]any) ([]vectorstore.SimilaritySearchResult, error)
	DeleteByMetadata(ctx context.Context, filter map[string]any) (int64, error)
}

// Hit is one library search result.
type Hit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	JobID   string  `json:"jobId,omitempty"`
	Score   float64 `json:"score"`
}

type Library struct {
	Store    Store
	Embedder Embedder
	Splitter textsplitter.TextSplitter
	Logger   *slog.Logger
}

func New(store Store, embedder Embedder, chunkSize, chunkOverlap int) *Library {
	return &Library{
		Store:    store,
		Embedder: embedder,
		Splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		Logger: slog.Default(),
	}
}

// Index replaces the library entries of a job with the chunks of its sources
// and returns the number of chunks stored.
func (l *Library) Index(ctx context.Context, jobID string, sources []research.SearchResult) (int, error) {
	if _, err := l.Store.DeleteByMetadata(ctx, map[string]any{"job_id": jobID}); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	var (
		texts []string
		docs  []vectorstore.Document
	)
	for _, src := range sources {
		if src.Content == "" {
			continue
		}
		chunks, err := l.Splitter.SplitText(src.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to split %s: %w", src.URL, err)
		}
		for i, chunk := range chunks {
			texts = append(texts, chunk)
			docs = append(docs, vectorstore.Document{
				Content: chunk,
				Metadata: map[string]any{
					"source":         src.URL,
					"title":          src.Title,
					"job_id":         jobID,
					"published_date": src.PublishedDate,
					"chunk":          i,
				},
			})
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	vecs, err := l.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vecs) != len(docs) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(docs), len(vecs))
	}
	for i := range docs {
		docs[i].Embedding = vecs[i]
	}

	if err := l.Store.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	l.Logger.Info("Indexed research sources", "job_id", jobID, "sources", len(sources), "chunks", len(docs))
	return len(docs), nil
}

// Search returns the k chunks most similar to query, optionally limited to one job.
func (l *Library) Search(ctx context.Context, query string, k int, jobID string) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	vec, err := l.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var filter map[string]any
	if jobID != "" {
		filter = map[string]any{"job_id": jobID}
	}
	results, err := l.Store.SimilaritySearch(ctx, vec, k, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Title:   metaString(r.Document.Metadata, "title"),
			URL:     metaString(r.Document.Metadata, "source"),
			JobID:   metaString(r.Document.Metadata, "job_id"),
			Content: r.Document.Content,
			Score:   r.Score,
		})
	}
	return hits, nil
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
