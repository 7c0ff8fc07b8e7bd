package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/pdfqa/internal/backend"
	"github.com/kalambet/pdfqa/internal/ingest"
	"github.com/kalambet/pdfqa/internal/loader"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Backends        *backend.Registry
	DefaultLanguage string
	Version         string
}

// NewMCPServer creates an MCP server exposing the document tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"pdfqa",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("pdfqa answers questions from indexed PDF documents."),
		server.WithRecovery(),
	)

	backendArg := mcp.WithString("backend", mcp.Description("Vector store backend: dict, simple or sqlite (default from config)"))

	s.AddTool(
		mcp.NewTool("ask_documents",
			mcp.WithDescription("Answer a question from the indexed PDF documents."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("language", mcp.Description("Answer language, e.g. English or French")),
			mcp.WithNumber("k", mcp.Description("Number of chunks to retrieve (default 5)")),
			backendArg,
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("ingest_pdf",
			mcp.WithDescription("Index a PDF file from the local filesystem."),
			mcp.WithString("path", mcp.Description("Path of the PDF file"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Document name (defaults to the file name)")),
			backendArg,
		),
		mcpIngest(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_document",
			mcp.WithDescription("Remove every chunk of a document from the store."),
			mcp.WithString("name", mcp.Description("Document name"), mcp.Required()),
			backendArg,
		),
		mcpDelete(deps),
	)

	s.AddTool(
		mcp.NewTool("store_info",
			mcp.WithDescription("Report chunk and document counts of the store."),
			backendArg,
		),
		mcpStoreInfo(deps),
	)

	return s
}

func mcpBackend(deps MCPDeps, req mcp.CallToolRequest) (backend.Backend, *mcp.CallToolResult) {
	b, err := deps.Backends.Get(req.GetString("backend", ""))
	if err != nil {
		return nil, mcpError(err.Error())
	}
	return b, nil
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcpError("question is required"), nil
		}
		b, errResult := mcpBackend(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		language := req.GetString("language", deps.DefaultLanguage)
		k := req.GetInt("k", 0)
		if k < 0 {
			k = 0
		}
		if k > 50 {
			k = 50
		}

		answer, err := b.Answer(ctx, question, language, k)
		if err != nil {
			return mcpError(fmt.Sprintf("answer failed: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpIngest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}
		b, errResult := mcpBackend(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return mcpError(fmt.Sprintf("only PDF files are accepted, got %q", path)), nil
		}
		if err := loader.SniffFile(path); err != nil {
			return mcpError(fmt.Sprintf("%s: %v", path, err)), nil
		}

		name := req.GetString("name", "")
		if name == "" {
			name = filepath.Base(path)
		}

		res, err := b.Store(ctx, path, name)
		if errors.Is(err, ingest.ErrDocumentExists) {
			return mcpError(fmt.Sprintf("%v; delete it first to re-ingest", err)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("ingest failed: %v", err)), nil
		}
		out, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpDelete(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		b, errResult := mcpBackend(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		removed, err := b.Delete(ctx, name)
		if errors.Is(err, vectorstore.ErrUnsupported) {
			return mcpError(fmt.Sprintf("backend %s cannot delete documents", b.Name())), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Removed %d chunks of %s", removed, name)), nil
	}
}

func mcpStoreInfo(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, errResult := mcpBackend(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		info, err := b.Info(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("store info failed: %v", err)), nil
		}
		out, err := json.Marshal(map[string]any{"backend": b.Name(), "info": info})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal info: %v", err)), nil
		}
		return mcpText(string(out)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
