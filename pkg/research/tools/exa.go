package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const DefaultExaBaseURL = "https://api.exa.ai"

// maxContentChars bounds the text returned by every ContentFetcher.
const maxContentChars = 3000

// ExaClient is both a SearchProvider and a ContentFetcher backed by the Exa API.
type ExaClient struct {
	APIKey     string
	BaseURL    string
	NumResults int
	HTTP       *http.Client
	Logger     *slog.Logger
}

func NewExaClient(apiKey string) *ExaClient {
	return &ExaClient{
		APIKey:     apiKey,
		BaseURL:    DefaultExaBaseURL,
		NumResults: 8,
		HTTP:       &http.Client{Timeout: 60 * time.Second},
		Logger:     slog.Default(),
	}
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
	Category   string `json:"category,omitempty"`
	Contents   struct {
		Text exaTextOptions `json:"text"`
	} `json:"contents"`
}

type exaContentsRequest struct {
	URLs      []string       `json:"urls"`
	Text      exaTextOptions `json:"text"`
	Livecrawl string         `json:"livecrawl"`
}

type exaResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate"`
	Favicon       string `json:"favicon"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

func (c *ExaClient) headers() map[string]string {
	return map[string]string{"x-api-key": c.APIKey}
}

func (c *ExaClient) Search(ctx context.Context, query, category string) ([]research.SearchResult, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("EXA_API_KEY is not set")
	}
	req := exaSearchRequest{Query: query, NumResults: c.NumResults, Type: "auto", Category: category}
	req.Contents.Text.MaxCharacters = 1000

	var resp exaResponse
	if err := clients.DoJSON(ctx, c.HTTP, http.MethodPost, c.BaseURL+"/search", c.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("exa search: %w", err)
	}
	c.Logger.Info("Exa search completed", "query", query, "category", category, "results", len(resp.Results))

	results := make([]research.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, research.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Text,
			PublishedDate: r.PublishedDate,
			Favicon:       r.Favicon,
		})
	}
	return results, nil
}

func (c *ExaClient) Fetch(ctx context.Context, urls []string) ([]research.Content, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("EXA_API_KEY is not set")
	}
	req := exaContentsRequest{
		URLs:      urls,
		Text:      exaTextOptions{MaxCharacters: maxContentChars},
		Livecrawl: "preferred",
	}

	var resp exaResponse
	if err := clients.DoJSON(ctx, c.HTTP, http.MethodPost, c.BaseURL+"/contents", c.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("exa contents: %w", err)
	}
	c.Logger.Info("Exa contents retrieved", "requested", len(urls), "received", len(resp.Results))

	contents := make([]research.Content, 0, len(resp.Results))
	for _, r := range resp.Results {
		contents = append(contents, research.Content{
			Title:         r.Title,
			URL:           r.URL,
			Text:          clients.Truncate(r.Text, maxContentChars),
			PublishedDate: r.PublishedDate,
			Favicon:       r.Favicon,
		})
	}
	return contents, nil
}
