package wrapped

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
)

const sessionSystemPrompt = `You search X for posts by one account. Answer with what you found, quoting posts
verbatim where possible and citing every post you mention.`

// XAISearch runs each plan step as one xAI chat completion with live X search
// restricted to the target handle and date range.
type XAISearch struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    *http.Client
	Logger  *slog.Logger
}

func NewXAISearch(apiKey, model string) *XAISearch {
	return &XAISearch{
		APIKey:  apiKey,
		BaseURL: clients.XAIBaseURL,
		Model:   model,
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
		Logger:  slog.Default(),
	}
}

type xSearchSource struct {
	Type             string   `json:"type"`
	IncludedXHandles []string `json:"included_x_handles,omitempty"`
}

type searchParameters struct {
	Mode            string          `json:"mode"`
	Sources         []xSearchSource `json:"sources"`
	FromDate        string          `json:"from_date,omitempty"`
	ToDate          string          `json:"to_date,omitempty"`
	ReturnCitations bool            `json:"return_citations"`
	MaxResults      int             `json:"max_search_results,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string           `json:"model"`
	Messages         []chatMessage    `json:"messages"`
	SearchParameters searchParameters `json:"search_parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (s *XAISearch) SearchPosts(ctx context.Context, req SearchRequest) (*SessionResult, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("XAI_API_KEY is not set")
	}
	body := chatRequest{
		Model: s.Model,
		Messages: []chatMessage{
			{Role: "system", Content: sessionSystemPrompt},
			{Role: "user", Content: req.Query},
		},
		SearchParameters: searchParameters{
			Mode:            "on",
			Sources:         []xSearchSource{{Type: "x", IncludedXHandles: []string{req.Handle}}},
			ReturnCitations: true,
			MaxResults:      25,
		},
	}
	if !req.From.IsZero() {
		body.SearchParameters.FromDate = req.From.Format("2006-01-02")
	}
	if !req.To.IsZero() {
		body.SearchParameters.ToDate = req.To.Format("2006-01-02")
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + s.APIKey}
	if err := clients.DoJSON(ctx, s.HTTP, http.MethodPost, s.BaseURL+"/chat/completions", headers, body, &resp); err != nil {
		return nil, fmt.Errorf("xai search: %w", err)
	}

	result := &SessionResult{Citations: resp.Citations}
	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
	}
	return result, nil
}
