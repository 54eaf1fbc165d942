package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const DefaultArxivBaseURL = "https://export.arxiv.org/api/query"

// ArxivEntry holds one entry of the arXiv Atom feed.
type ArxivEntry struct {
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Link      []ArxivLink `xml:"link"`
}

type ArxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// ArxivSearch is a SearchProvider over the public arXiv API. The category
// argument is ignored: every query is a paper search.
type ArxivSearch struct {
	BaseURL    string
	MaxResults int
	HTTP       *http.Client
	Logger     *slog.Logger
}

func NewArxivSearch() *ArxivSearch {
	return &ArxivSearch{
		BaseURL:    DefaultArxivBaseURL,
		MaxResults: 5,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
		Logger:     slog.Default(),
	}
}

func (a *ArxivSearch) Search(ctx context.Context, query, category string) ([]research.SearchResult, error) {
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(maxResults))
	params.Add("start", "0")
	apiURL := a.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		a.Logger.Error("API returned non-200 status code", "status", resp.StatusCode, "body", clients.Truncate(string(body), 500))
		return nil, fmt.Errorf("API returned non-200 status code: %d", resp.StatusCode)
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}
	a.Logger.Info("arXiv search completed", "query", query, "results", len(feed.Entry))

	results := make([]research.SearchResult, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		results = append(results, research.SearchResult{
			Title:         collapseSpace(entry.Title),
			URL:           entry.link(),
			Content:       collapseSpace(entry.Summary),
			PublishedDate: entry.Published,
			Favicon:       "https://arxiv.org/favicon.ico",
		})
	}
	return results, nil
}

// link prefers the PDF link so the fetch chain can route it to OCR.
func (e ArxivEntry) link() string {
	for _, l := range e.Link {
		if l.Type == "application/pdf" || l.Title == "pdf" {
			return l.Href
		}
	}
	return e.ID
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
