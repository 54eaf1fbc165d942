package wrapped

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXAISearch(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer xai-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "alice posted about Go"}}],
			"citations": ["https://x.com/alice/status/1", "https://x.com/alice/status/2"]
		}`))
	}))
	defer server.Close()

	s := NewXAISearch("xai-key", "grok-4-fast")
	s.BaseURL = server.URL

	res, err := s.SearchPosts(context.Background(), SearchRequest{
		Query:  "Posts by @alice",
		Handle: "alice",
		From:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "alice posted about Go", res.Text)
	assert.Len(t, res.Citations, 2)

	assert.Equal(t, "grok-4-fast", got.Model)
	assert.Equal(t, "Posts by @alice", got.Messages[1].Content)
	assert.Equal(t, "on", got.SearchParameters.Mode)
	assert.Equal(t, "2025-01-01", got.SearchParameters.FromDate)
	assert.Equal(t, "2025-12-31", got.SearchParameters.ToDate)
	require.Len(t, got.SearchParameters.Sources, 1)
	assert.Equal(t, []string{"alice"}, got.SearchParameters.Sources[0].IncludedXHandles)
	assert.True(t, got.SearchParameters.ReturnCitations)
}

func TestXAISearchRequiresKey(t *testing.T) {
	_, err := NewXAISearch("", "grok").SearchPosts(context.Background(), SearchRequest{Query: "q"})
	assert.ErrorContains(t, err, "XAI_API_KEY")
}
