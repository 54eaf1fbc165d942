package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zaidmukaddam/scira/pkg/research"
)

// ToolRunner runs the agent tools outside a research run.
type ToolRunner interface {
	WebSearch(ctx context.Context, query, category string) []research.SearchHit
	RunCode(ctx context.Context, title, code string) (*research.CodeRunnerOutput, error)
}

type webSearchInput struct {
	Query    string `json:"query" jsonschema:"the search query in under 100 characters"`
	Category string `json:"category,omitempty" jsonschema:"optional category such as news or research paper"`
}

type codeRunnerInput struct {
	Title string `json:"title" jsonschema:"short title for the computation"`
	Code  string `json:"code" jsonschema:"python code to run; print the results"`
}

type searchLibraryInput struct {
	Query string `json:"query" jsonschema:"what to look for in previously researched sources"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return; defaults to 5"`
}

// NewMCPServer exposes web_search and code_runner, plus search_library when a library is configured.
func NewMCPServer(tools ToolRunner, library LibrarySearcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "scira", Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "web_search",
		Description: "Search the web and read the content of the top results.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in webSearchInput) (*mcp.CallToolResult, any, error) {
		if in.Query == "" {
			return nil, nil, errors.New("query is required")
		}
		if len([]rune(in.Query)) > 100 {
			return nil, nil, errors.New("query must be under 100 characters")
		}
		return jsonResult(tools.WebSearch(ctx, in.Query, in.Category))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "code_runner",
		Description: "Run Python code in a sandbox and return stdout and any charts.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in codeRunnerInput) (*mcp.CallToolResult, any, error) {
		out, err := tools.RunCode(ctx, in.Title, in.Code)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return jsonResult(out)
	})

	if library != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "search_library",
			Description: "Semantic search over the sources of completed research jobs.",
		}, func(ctx context.Context, req *mcp.CallToolRequest, in searchLibraryInput) (*mcp.CallToolResult, any, error) {
			hits, err := library.Search(ctx, in.Query, in.TopK, "")
			if err != nil {
				return nil, nil, fmt.Errorf("library search failed: %w", err)
			}
			return jsonResult(hits)
		})
	}

	return server
}

// MCPHandler serves the server over streamable HTTP.
func MCPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
}
