package research

import (
	"context"
	"fmt"
)

// webSearch never fails: search errors count as zero results and content
// errors fall back to the unrefined results.
func (e *Engine) webSearch(ctx context.Context, cmd SearchCommand, sink Sink, acc *SourceAccumulator) []SearchHit {
	sink.Emit(statusAnnotation(fmt.Sprintf("Searching the web for %q", cmd.Query), ""))
	sink.Emit(Annotation{Type: AnnotationSearchQuery, QueryID: cmd.ID, Query: cmd.Query})

	results, err := e.Search.Search(ctx, cmd.Query, cmd.Category)
	if err != nil {
		e.Logger.Warn("Search failed, continuing with no results", "query", cmd.Query, "error", err)
		results = nil
	}
	start := acc.Append(results...)

	for _, r := range results {
		sink.Emit(Annotation{
			Type:    AnnotationSource,
			QueryID: cmd.ID,
			Source:  &SourceRef{Title: r.Title, URL: r.URL},
		})
	}

	if len(results) > 0 && e.Fetcher != nil {
		sink.Emit(statusAnnotation("Reading content from search results", ""))

		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.URL
		}
		contents, err := e.Fetcher.Fetch(ctx, urls)
		if err != nil {
			e.Logger.Warn("Content fetch failed, using search snippets", "query", cmd.Query, "error", err)
		} else if len(contents) > 0 {
			results = refineResults(results, contents)
			acc.Refine(start, results)
			for _, r := range results {
				sink.Emit(Annotation{
					Type:    AnnotationContent,
					QueryID: cmd.ID,
					Content: &ContentRef{
						Title: r.Title,
						URL:   r.URL,
						Text:  truncateWithEllipsis(r.Content, maxContentPreview),
						Full:  r.Content,
					},
				})
			}
		}
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{Title: r.Title, URL: r.URL, Content: r.Content, PublishedDate: r.PublishedDate}
	}
	return hits
}

// refineResults replaces the result set with the fetched documents, falling
// back field by field to the original search result with the same URL.
func refineResults(results []SearchResult, contents []Content) []SearchResult {
	refined := make([]SearchResult, 0, len(contents))
	for _, c := range contents {
		var orig SearchResult
		for _, r := range results {
			if r.URL == c.URL {
				orig = r
				break
			}
		}
		refined = append(refined, SearchResult{
			Title:         firstNonEmpty(c.Title, orig.Title),
			URL:           c.URL,
			Content:       firstNonEmpty(c.Text, orig.Content),
			PublishedDate: firstNonEmpty(c.PublishedDate, orig.PublishedDate),
			Favicon:       firstNonEmpty(c.Favicon, orig.Favicon),
		})
	}
	return refined
}

// codeRunner lets sandbox errors propagate so the model sees them as a tool failure.
func (e *Engine) codeRunner(ctx context.Context, cmd CodeCommand, sink Sink) (*CodeRunnerOutput, error) {
	if e.Code == nil {
		return nil, fmt.Errorf("code execution is not configured")
	}
	libraries := MissingLibraries(cmd.Code)

	sink.Emit(Annotation{Status: &Status{
		Title: fmt.Sprintf("Executing code: %s", cmd.Title),
		Type:  "code",
		Code:  cmd.Code,
	}})

	exec, err := e.Code.Run(ctx, CodeRequest{Title: cmd.Title, Code: cmd.Code, Libraries: libraries})
	if err != nil {
		return nil, fmt.Errorf("code execution failed: %w", err)
	}

	charts := stripChartImages(exec.Charts)
	sink.Emit(Annotation{Status: &Status{
		Title:  fmt.Sprintf("Code executed: %s", cmd.Title),
		Type:   "result",
		Code:   cmd.Code,
		Result: exec.Stdout,
		Charts: charts,
	}})

	return &CodeRunnerOutput{Result: exec.Stdout, Charts: charts}, nil
}

// stripChartImages drops the base64 png payload from each chart.
func stripChartImages(charts []ChartArtifact) []ChartArtifact {
	if charts == nil {
		return nil
	}
	out := make([]ChartArtifact, len(charts))
	for i, c := range charts {
		stripped := make(ChartArtifact, len(c))
		for k, v := range c {
			if k == "png" {
				continue
			}
			stripped[k] = v
		}
		out[i] = stripped
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// WebSearch runs the webSearch tool outside an agent run.
func (e *Engine) WebSearch(ctx context.Context, query, category string) []SearchHit {
	var acc SourceAccumulator
	return e.webSearch(ctx, SearchCommand{Query: query, Category: category}, Discard, &acc)
}

// RunCode runs the codeRunner tool outside an agent run.
func (e *Engine) RunCode(ctx context.Context, title, code string) (*CodeRunnerOutput, error) {
	return e.codeRunner(ctx, CodeCommand{Title: title, Code: code}, Discard)
}
