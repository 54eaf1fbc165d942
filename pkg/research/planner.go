package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const plannerSystemPrompt = `You are a research planner. Break the user's research prompt into a plan.

Rules:
- Produce 1-5 topics. Each topic has a title of 10-70 characters and 3-5 todos.
- Keep the total number of todos across all topics at or below 15.
- Each todo is one discrete action: a web search, reading a specific source, or a computation.
- If a topic needs calculations, data analysis or a chart, add a todo that says so explicitly
  (for example "Run code to plot ..."), otherwise plan searches only.
- Today's date is %s.`

// Planner decomposes a prompt into a bounded ResearchPlan with a single model call.
type Planner struct {
	LLM    llms.Model
	Logger *slog.Logger
}

func NewPlanner(llm llms.Model) *Planner {
	return &Planner{LLM: llm, Logger: slog.Default()}
}

// Plan does not retry: a response that fails the schema is returned as an error.
func (p *Planner) Plan(ctx context.Context, prompt string) (*ResearchPlan, error) {
	p.Logger.Info("Starting planning phase", "prompt_len", len(prompt))

	systemPrompt := fmt.Sprintf(plannerSystemPrompt, time.Now().Format("2006-01-02")) +
		"\n\n# Response Format:\nReturn only a JSON object matching this schema:\n" + SchemaJSON(ResearchPlan{})

	resp, err := p.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	var plan ResearchPlan
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Choices[0].Content)), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	p.Logger.Info("Generated plan", "topics", len(plan.Plan), "todos", plan.TotalTodos())
	return &plan, nil
}
