package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidmukaddam/scira/pkg/research"
)

type stubFetcher struct {
	mu    sync.Mutex
	known map[string]string
	err   error
	calls [][]string
}

func (s *stubFetcher) Fetch(ctx context.Context, urls []string) ([]research.Content, error) {
	s.mu.Lock()
	s.calls = append(s.calls, urls)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []research.Content
	for _, u := range urls {
		if text, ok := s.known[u]; ok {
			out = append(out, research.Content{URL: u, Text: text})
		}
	}
	return out, nil
}

func TestFetchChainRoutesAndFallsBack(t *testing.T) {
	primary := &stubFetcher{known: map[string]string{"https://a": "primary a"}}
	fallback := &stubFetcher{known: map[string]string{"https://b": "fallback b"}}
	pdf := &stubFetcher{known: map[string]string{"https://p/doc.pdf": "pdf text"}}

	chain := &FetchChain{Primary: primary, Fallback: fallback, PDF: pdf}
	contents, err := chain.Fetch(context.Background(), []string{"https://p/doc.pdf", "https://a", "https://b", "https://c"})
	require.NoError(t, err)

	require.Len(t, contents, 3)
	assert.Equal(t, "pdf text", contents[0].Text)
	assert.Equal(t, "primary a", contents[1].Text)
	assert.Equal(t, "fallback b", contents[2].Text)

	assert.Equal(t, [][]string{{"https://p/doc.pdf"}}, pdf.calls)
	assert.Equal(t, [][]string{{"https://a", "https://b", "https://c"}}, primary.calls)
	assert.ElementsMatch(t, [][]string{{"https://b"}, {"https://c"}}, fallback.calls)
}

func TestFetchChainPrimaryErrorUsesFallbackForAll(t *testing.T) {
	primary := &stubFetcher{err: errors.New("quota exceeded")}
	fallback := &stubFetcher{known: map[string]string{"https://a": "a", "https://b": "b"}}

	chain := &FetchChain{Primary: primary, Fallback: fallback}
	contents, err := chain.Fetch(context.Background(), []string{"https://a", "https://b"})
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, "a", contents[0].Text)
	assert.Equal(t, "b", contents[1].Text)
}

func TestFetchChainAllStagesFailed(t *testing.T) {
	chain := &FetchChain{
		Primary:  &stubFetcher{err: errors.New("primary down")},
		Fallback: &stubFetcher{err: errors.New("fallback down")},
	}
	_, err := chain.Fetch(context.Background(), []string{"https://a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
	assert.Contains(t, err.Error(), "fallback down")
}

func TestFetchChainNothingFoundIsNotAnError(t *testing.T) {
	chain := &FetchChain{Primary: &stubFetcher{}, Fallback: &stubFetcher{}}
	contents, err := chain.Fetch(context.Background(), []string{"https://a"})
	require.NoError(t, err)
	assert.Empty(t, contents)
}
