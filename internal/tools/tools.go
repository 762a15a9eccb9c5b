// Package tools exposes the pipeline as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenthands/lexgraph/internal/core"
	"github.com/agenthands/lexgraph/internal/core/graph"
	"github.com/agenthands/lexgraph/internal/core/model"
)

const Version = "1.0.0"

// NewServer registers answer_question and search_documents, plus
// trace_relations when a graph engine is available.
func NewServer(g *core.LexGraph, engine *graph.Engine) *server.MCPServer {
	s := server.NewMCPServer("lexgraph", Version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Answers questions about regulations and legislation from a citation graph and a document index."),
	)

	s.AddTool(mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a question about regulations, citing the instruments and passages used"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question in natural language")),
	), HandleAnswer(g))

	s.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search the regulation index by keyword, vector similarity or both"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithString("mode", mcp.Description("keyword, vector or hybrid"), mcp.Enum("keyword", "vector", "hybrid")),
		mcp.WithNumber("size", mcp.Description("Maximum number of hits")),
	), HandleSearch(g))

	if engine != nil {
		s.AddTool(mcp.NewTool("trace_relations",
			mcp.WithDescription("Follow a chain of relations into a named act, e.g. amends then implements"),
			mcp.WithString("target", mcp.Required(), mcp.Description("Name or citation of the act or regulation")),
			mcp.WithString("relations", mcp.Required(), mcp.Description("Comma separated relations, one per hop: cites, amends, implements")),
		), HandleTrace(engine))
	}
	return s
}

func HandleAnswer(g *core.LexGraph) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		a, err := g.AnswerQuestion(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to answer question: %v", err)), nil
		}
		return jsonResult(a)
	}
}

func HandleSearch(g *core.LexGraph) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode, err := model.ParseSearchMode(req.GetString("mode", string(model.ModeHybrid)))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		set := g.Search(ctx, query, mode, req.GetInt("size", 10))
		if errors.Is(set.Err, model.ErrIndexCorrupted) {
			return mcp.NewToolResultError(set.Err.Error()), nil
		}
		return jsonResult(set)
	}
}

func HandleTrace(engine *graph.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := req.RequireString("target")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := req.RequireString("relations")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var kinds []model.EdgeKind
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := model.ParseEdgeKind(strings.TrimSpace(part))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kinds = append(kinds, k)
		}
		if len(kinds) == 0 {
			return mcp.NewToolResultError("at least one relation is required"), nil
		}
		r := engine.ResolveChain(ctx, target, kinds...)
		if r.Err != nil {
			return mcp.NewToolResultError(r.Err.Error()), nil
		}
		return jsonResult(r)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
