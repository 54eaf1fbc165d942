package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const DefaultMistralOCRURL = "https://api.mistral.ai/v1/ocr"

type PdfScrapeResponsePage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type OcrResponse struct {
	Pages []PdfScrapeResponsePage `json:"pages"`
}

// PDFFetcher extracts PDF text with the Mistral OCR API.
type PDFFetcher struct {
	APIKey   string
	Endpoint string
	Model    string
	HTTP     *http.Client
	Logger   *slog.Logger
}

func NewPDFFetcher(apiKey string) *PDFFetcher {
	return &PDFFetcher{
		APIKey:   apiKey,
		Endpoint: DefaultMistralOCRURL,
		Model:    "mistral-ocr-latest",
		HTTP:     &http.Client{Timeout: 120 * time.Second},
		Logger:   slog.Default(),
	}
}

// IsPDF reports whether a URL points at a PDF document.
func IsPDF(rawURL string) bool {
	u := strings.ToLower(rawURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".pdf") || strings.Contains(u, "arxiv.org/pdf/")
}

// Fetch scrapes each URL in turn. Failed documents are dropped; an error is
// returned only when none could be read.
func (p *PDFFetcher) Fetch(ctx context.Context, urls []string) ([]research.Content, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("MISTRAL_API_KEY is not set")
	}
	var contents []research.Content
	var errs []error
	for _, u := range urls {
		text, err := p.ScrapePDF(ctx, u)
		if err != nil {
			p.Logger.Warn("PDF scrape failed", "url", u, "error", err)
			errs = append(errs, err)
			continue
		}
		contents = append(contents, research.Content{URL: u, Text: clients.Truncate(text, maxContentChars)})
	}
	if len(contents) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return contents, nil
}

// ScrapePDF returns the OCR markdown of every page of the document.
func (p *PDFFetcher) ScrapePDF(ctx context.Context, url string) (string, error) {
	url = strings.Replace(url, "http://", "https://", 1)
	p.Logger.Info("PDF scraper called", "url", url)

	reqBody := map[string]any{
		"model": p.Model,
		"document": map[string]string{
			"type":         "document_url",
			"document_url": url,
		},
		"include_image_base64": false,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}

	var ocrResponse OcrResponse
	if err := clients.DoJSON(ctx, p.HTTP, http.MethodPost, p.Endpoint, headers, reqBody, &ocrResponse); err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}

	var b strings.Builder
	for _, page := range ocrResponse.Pages {
		b.WriteString(page.Markdown)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}
