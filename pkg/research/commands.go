package research

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

var searchCategories = map[string]bool{
	"news":             true,
	"company":          true,
	"research paper":   true,
	"github":           true,
	"financial report": true,
}

type webSearchArgs struct {
	Query    string `json:"query" jsonschema:"maxLength=100" jsonschema_description:"The search query. Keep it under 100 characters."`
	Category string `json:"category,omitempty" jsonschema:"enum=news,enum=company,enum=research paper,enum=github,enum=financial report" jsonschema_description:"Optional category to narrow the search."`
}

type codeRunnerArgs struct {
	Title string `json:"title" jsonschema_description:"A short title describing what the code does."`
	Code  string `json:"code" jsonschema_description:"Self-contained Python code. Print results to stdout and use matplotlib for charts."`
}

// Command is a decoded model decision. A step yields either one FinishCommand
// or one command per tool call, in the order the model emitted them.
type Command interface {
	callID() string
	tool() string
}

type SearchCommand struct {
	ID       string
	Query    string
	Category string
}

type CodeCommand struct {
	ID    string
	Title string
	Code  string
}

// FinishCommand ends the loop with the model's final text.
type FinishCommand struct {
	Text string
}

// InvalidCommand is a tool call that could not be decoded; it is reported back
// to the model as a tool error.
type InvalidCommand struct {
	ID   string
	Name string
	Err  error
}

func (c SearchCommand) callID() string  { return c.ID }
func (c CodeCommand) callID() string    { return c.ID }
func (c InvalidCommand) callID() string { return c.ID }
func (FinishCommand) callID() string    { return "" }

func (SearchCommand) tool() string    { return ToolWebSearch }
func (CodeCommand) tool() string      { return ToolCodeRunner }
func (c InvalidCommand) tool() string { return c.Name }
func (FinishCommand) tool() string    { return "" }

func toolDefinitions() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        ToolWebSearch,
				Description: "Search the web for information on a topic. Returns titles, urls and page content.",
				Parameters:  SchemaMap(webSearchArgs{}),
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        ToolCodeRunner,
				Description: "Run Python code in an isolated sandbox for calculations, data analysis and charts.",
				Parameters:  SchemaMap(codeRunnerArgs{}),
			},
		},
	}
}

// decodeStep turns one model response into commands. Tool calls without an id
// get a generated one; the returned calls carry the ids used by the commands.
func decodeStep(choice *llms.ContentChoice) ([]Command, []llms.ToolCall) {
	if len(choice.ToolCalls) == 0 {
		return []Command{FinishCommand{Text: choice.Content}}, nil
	}
	cmds := make([]Command, 0, len(choice.ToolCalls))
	calls := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		cmd, err := decodeToolCall(tc)
		if err != nil {
			name := ""
			if tc.FunctionCall != nil {
				name = tc.FunctionCall.Name
			}
			cmd = InvalidCommand{ID: tc.ID, Name: name, Err: err}
		}
		cmds = append(cmds, cmd)
		calls = append(calls, tc)
	}
	return cmds, calls
}

// decodeToolCall maps a provider tool call onto a Command.
func decodeToolCall(tc llms.ToolCall) (Command, error) {
	if tc.FunctionCall == nil {
		return nil, fmt.Errorf("tool call %s has no function", tc.ID)
	}
	switch tc.FunctionCall.Name {
	case ToolWebSearch:
		var args webSearchArgs
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", ToolWebSearch, err)
		}
		if args.Query == "" {
			return nil, fmt.Errorf("invalid %s arguments: query is required", ToolWebSearch)
		}
		if utf8.RuneCountInString(args.Query) > 100 {
			return nil, fmt.Errorf("invalid %s arguments: query exceeds 100 characters", ToolWebSearch)
		}
		if args.Category != "" && !searchCategories[args.Category] {
			return nil, fmt.Errorf("invalid %s arguments: unknown category %q", ToolWebSearch, args.Category)
		}
		return SearchCommand{ID: tc.ID, Query: args.Query, Category: args.Category}, nil
	case ToolCodeRunner:
		var args codeRunnerArgs
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", ToolCodeRunner, err)
		}
		if args.Code == "" {
			return nil, fmt.Errorf("invalid %s arguments: code is required", ToolCodeRunner)
		}
		return CodeCommand{ID: tc.ID, Title: args.Title, Code: args.Code}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", tc.FunctionCall.Name)
	}
}
