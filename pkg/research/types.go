package research

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	ToolWebSearch  = "webSearch"
	ToolCodeRunner = "codeRunner"

	// maxSourceContent bounds each source's content in the final payload.
	maxSourceContent = 3000
	// maxContentPreview bounds the "text" field of content annotations.
	maxContentPreview = 300
)

var ErrInvalidPlan = errors.New("invalid research plan")

// Topic is one titled unit of a research plan.
type Topic struct {
	Title string   `json:"title" jsonschema:"minLength=10,maxLength=70" jsonschema_description:"A short title for this research topic (10-70 characters)."`
	Todos []string `json:"todos" jsonschema:"minItems=3,maxItems=5" jsonschema_description:"3-5 specific, actionable research tasks for this topic."`
}

// ResearchPlan is produced once per request by the Planner and only read afterwards.
type ResearchPlan struct {
	Plan []Topic `json:"plan" jsonschema:"minItems=1,maxItems=5" jsonschema_description:"1-5 research topics covering the prompt."`
}

func (p ResearchPlan) TotalTodos() int {
	total := 0
	for _, t := range p.Plan {
		total += len(t.Todos)
	}
	return total
}

// StepBudget is the ceiling on agent steps: one per todo plus two for error recovery.
func (p ResearchPlan) StepBudget() int {
	return p.TotalTodos() + 2
}

func (p ResearchPlan) Validate() error {
	if len(p.Plan) < 1 || len(p.Plan) > 5 {
		return fmt.Errorf("%w: expected 1-5 topics, got %d", ErrInvalidPlan, len(p.Plan))
	}
	for i, t := range p.Plan {
		n := utf8.RuneCountInString(t.Title)
		if n < 10 || n > 70 {
			return fmt.Errorf("%w: topic %d title must be 10-70 characters, got %d", ErrInvalidPlan, i, n)
		}
		if len(t.Todos) < 3 || len(t.Todos) > 5 {
			return fmt.Errorf("%w: topic %d must have 3-5 todos, got %d", ErrInvalidPlan, i, len(t.Todos))
		}
	}
	return nil
}

// SearchResult is a normalized search hit. Identity key is URL.
type SearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
}

// Content is a full-text document returned by a ContentFetcher.
type Content struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
}

// ChartArtifact is passed through untouched apart from the png payload.
type ChartArtifact map[string]any

// SearchHit is the trimmed result handed back to the model.
type SearchHit struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"publishedDate"`
}

type CodeRunnerOutput struct {
	Result string          `json:"result"`
	Charts []ChartArtifact `json:"charts,omitempty"`
}

// ToolResult records one successful tool invocation, in completion order.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Args       any    `json:"args"`
	Result     any    `json:"result"`
}

type FinalResearch struct {
	Text        string          `json:"text"`
	ToolResults []ToolResult    `json:"toolResults"`
	Sources     []SearchResult  `json:"sources"`
	Charts      []ChartArtifact `json:"charts"`
}

// CodeRequest is what the codeRunner tool hands to a CodeExecutor.
type CodeRequest struct {
	Title     string
	Code      string
	Libraries []string
}

// CodeExecution is the raw sandbox outcome; charts may still carry png data.
type CodeExecution struct {
	Stdout   string
	ExitCode int
	Charts   []ChartArtifact
}

// truncateWithEllipsis keeps at most n runes and always appends "...".
func truncateWithEllipsis(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return s + "..."
}
