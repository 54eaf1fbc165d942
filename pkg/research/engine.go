package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const agentSystemPrompt = `You are an autonomous research agent. Today's date is %s.
Work through the research plan below using the webSearch and codeRunner tools.

- You have at most %d steps. Spend roughly one step per todo and keep the last two for recovering from errors.
- Use codeRunner only for todos that need computation, data analysis or a chart.
- Search queries must be distinct and under 100 characters.
- When the plan is covered, stop calling tools and write a concise summary of the findings that cites source URLs.

Research plan:
%s`

type SearchProvider interface {
	Search(ctx context.Context, query, category string) ([]SearchResult, error)
}

type ContentFetcher interface {
	Fetch(ctx context.Context, urls []string) ([]Content, error)
}

type CodeExecutor interface {
	Run(ctx context.Context, req CodeRequest) (*CodeExecution, error)
}

// AgentOutput is what the tool-calling loop produces before aggregation.
type AgentOutput struct {
	Text        string
	ToolResults []ToolResult
	Steps       int
}

// Engine runs plan -> agent loop -> aggregation for one prompt per call.
// The same Engine may serve concurrent runs; all per-run state lives in Run.
type Engine struct {
	Planner     *Planner
	LLM         llms.Model
	Search      SearchProvider
	Fetcher     ContentFetcher
	Code        CodeExecutor
	Logger      *slog.Logger
	PacingDelay time.Duration

	// OnToolCall, if set, is called after every tool invocation.
	OnToolCall func(tool string, err error)
}

func NewEngine(planner *Planner, llm llms.Model, search SearchProvider, fetcher ContentFetcher, code CodeExecutor) *Engine {
	return &Engine{
		Planner:     planner,
		LLM:         llm,
		Search:      search,
		Fetcher:     fetcher,
		Code:        code,
		Logger:      slog.Default(),
		PacingDelay: 2 * time.Second,
	}
}

// Run executes a full research request. Only planning and model failures abort it.
func (e *Engine) Run(ctx context.Context, prompt string, sink Sink) (*FinalResearch, error) {
	if sink == nil {
		sink = Discard
	}
	e.Logger.Info("Starting research", "prompt_len", len(prompt))
	sink.Emit(statusAnnotation("Planning research", ""))

	if e.PacingDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.PacingDelay):
		}
	}

	plan, err := e.Planner.Plan(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	sink.Emit(Annotation{Status: &Status{Title: "Research plan ready", Type: "plan", Plan: plan}})

	var acc SourceAccumulator
	out, err := e.Orchestrate(ctx, prompt, plan, sink, &acc)
	if err != nil {
		return nil, err
	}

	final := Aggregate(out.ToolResults, acc.Items())
	final.Text = out.Text

	e.Logger.Info("Research complete", "steps", out.Steps, "tool_results", len(out.ToolResults),
		"sources", len(final.Sources), "charts", len(final.Charts))
	sink.Emit(statusAnnotation("Research completed", "done"))
	return &final, nil
}

// Orchestrate runs the tool-calling loop for at most plan.StepBudget() model steps.
func (e *Engine) Orchestrate(ctx context.Context, prompt string, plan *ResearchPlan, sink Sink, acc *SourceAccumulator) (*AgentOutput, error) {
	budget := plan.StepBudget()
	planJSON, _ := json.MarshalIndent(plan, "", "  ")

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem,
			fmt.Sprintf(agentSystemPrompt, time.Now().Format("2006-01-02"), budget, planJSON)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	tools := toolDefinitions()

	out := &AgentOutput{}
	finished := false
	for !finished && out.Steps < budget {
		out.Steps++
		e.Logger.Info("Agent step", "step", out.Steps, "budget", budget)

		resp, err := e.LLM.GenerateContent(ctx, messages, llms.WithTools(tools))
		if err != nil {
			return nil, fmt.Errorf("agent step %d: %w", out.Steps, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("agent step %d: llm returned no choices", out.Steps)
		}
		choice := resp.Choices[0]
		out.Text = choice.Content

		cmds, calls := decodeStep(choice)
		if finish, ok := cmds[0].(FinishCommand); ok {
			out.Text = finish.Text
			finished = true
			continue
		}

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
		}
		for _, tc := range calls {
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}
		messages = append(messages, aiMsg)

		for _, cmd := range cmds {
			result, err := e.dispatch(ctx, cmd, sink, acc)
			if e.OnToolCall != nil {
				e.OnToolCall(cmd.tool(), err)
			}

			var content string
			if err != nil {
				e.Logger.Warn("Tool call failed", "tool", cmd.tool(), "tool_call_id", cmd.callID(), "error", err)
				content = fmt.Sprintf("Error: %v", err)
			} else {
				out.ToolResults = append(out.ToolResults, *result)
				b, mErr := json.Marshal(result.Result)
				if mErr != nil {
					content = fmt.Sprintf("Error: %v", mErr)
				} else {
					content = string(b)
				}
			}

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: cmd.callID(),
						Name:       cmd.tool(),
						Content:    content,
					},
				},
			})
		}
	}

	if !finished {
		e.Logger.Info("Step budget reached", "budget", budget)
	}
	return out, nil
}

// dispatch executes one decoded tool command.
func (e *Engine) dispatch(ctx context.Context, cmd Command, sink Sink, acc *SourceAccumulator) (*ToolResult, error) {
	switch c := cmd.(type) {
	case SearchCommand:
		hits := e.webSearch(ctx, c, sink, acc)
		return &ToolResult{
			ToolCallID: c.ID,
			ToolName:   ToolWebSearch,
			Args:       webSearchArgs{Query: c.Query, Category: c.Category},
			Result:     hits,
		}, nil
	case CodeCommand:
		output, err := e.codeRunner(ctx, c, sink)
		if err != nil {
			return nil, err
		}
		return &ToolResult{
			ToolCallID: c.ID,
			ToolName:   ToolCodeRunner,
			Args:       codeRunnerArgs{Title: c.Title, Code: c.Code},
			Result:     *output,
		}, nil
	case InvalidCommand:
		return nil, c.Err
	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}
