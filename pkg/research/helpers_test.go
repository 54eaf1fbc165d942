package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// scriptedLLM implements llms.Model, replaying responses in order.
type scriptedLLM struct {
	responses []*llms.ContentResponse
	calls     int
	options   []llms.CallOptions
	messages  [][]llms.MessageContent
}

func (m *scriptedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	m.options = append(m.options, opts)
	m.messages = append(m.messages, messages)

	if m.calls >= len(m.responses) {
		return textResponse("No more responses"), nil
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func toolResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls}}}
}

func searchCall(id, query string) llms.ToolCall {
	args, _ := json.Marshal(map[string]string{"query": query})
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: ToolWebSearch, Arguments: string(args)},
	}
}

func codeCall(id, title, code string) llms.ToolCall {
	args, _ := json.Marshal(map[string]string{"title": title, "code": code})
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: ToolCodeRunner, Arguments: string(args)},
	}
}

func planResponse(topics, todos int) *llms.ContentResponse {
	var plan ResearchPlan
	for i := 0; i < topics; i++ {
		t := Topic{Title: fmt.Sprintf("Research topic number %d", i+1)}
		for j := 0; j < todos; j++ {
			t.Todos = append(t.Todos, fmt.Sprintf("todo %d.%d", i+1, j+1))
		}
		plan.Plan = append(plan.Plan, t)
	}
	b, _ := json.Marshal(plan)
	return textResponse(string(b))
}

type fakeSearch struct {
	results map[string][]SearchResult
	errs    map[string]error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query, category string) ([]SearchResult, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

type fakeFetcher struct {
	texts map[string]string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, urls []string) ([]Content, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []Content
	for _, u := range urls {
		if text, ok := f.texts[u]; ok {
			out = append(out, Content{URL: u, Text: text})
		}
	}
	return out, nil
}

type fakeExecutor struct {
	exec     *CodeExecution
	err      error
	requests []CodeRequest
}

func (f *fakeExecutor) Run(ctx context.Context, req CodeRequest) (*CodeExecution, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.exec, nil
}

type recorder struct {
	annotations []Annotation
}

func (r *recorder) Emit(a Annotation) { r.annotations = append(r.annotations, a) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(planner, agent *scriptedLLM, search SearchProvider, fetcher ContentFetcher, code CodeExecutor) *Engine {
	p := NewPlanner(planner)
	p.Logger = quietLogger()
	e := NewEngine(p, agent, search, fetcher, code)
	e.Logger = quietLogger()
	e.PacingDelay = 0
	return e
}

func results(prefix string, n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{
			Title:   fmt.Sprintf("%s result %d", prefix, i),
			URL:     fmt.Sprintf("https://%s.example.com/%d", prefix, i),
			Content: "snippet",
		}
	}
	return out
}
