// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the book archive to LLMs via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/registry"
)

const fingerprintRuleURI = "archive://fingerprint-rule"

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp    *server.MCPServer
	reg    *registry.Registry
	caller auth.Identity
}

// New creates a new MCP server. Books archived through it are submitted as
// caller.
func New(reg *registry.Registry, caller auth.Identity, version string) *Server {
	s := &Server{reg: reg, caller: caller}

	s.mcp = server.NewMCPServer(
		"Archiver",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("archive_book",
		mcp.WithDescription("Archive a book. Each book (title + author, case-insensitive) can be archived only once. "+
			"Returns the fingerprint and stored record."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Book title")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Book author")),
		mcp.WithString("content_ref", mcp.Required(), mcp.Description("Pointer to externally stored content, e.g. ipfs://... (stored verbatim)")),
	), s.archiveBook)

	s.mcp.AddTool(mcp.NewTool("book_summary",
		mcp.WithDescription("Look up an archived book by its fingerprint."),
		mcp.WithString("fingerprint", mcp.Required(), mcp.Description("0x-prefixed hex fingerprint")),
	), s.bookSummary)

	s.mcp.AddTool(mcp.NewTool("compute_fingerprint",
		mcp.WithDescription("Compute the fingerprint of a title and author without touching the archive."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Book title")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Book author")),
	), s.computeFingerprint)

	s.mcp.AddResource(
		mcp.NewResource(fingerprintRuleURI, "Fingerprint Rule",
			mcp.WithResourceDescription("How book fingerprints are derived from title and author."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFingerprintRule,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) archiveBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := req.RequireString("content_ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fp, rec, err := s.reg.Archive(ctx, s.caller, []byte(title), []byte(author), []byte(ref))
	switch {
	case errors.Is(err, apperr.ErrAlreadyExistsInArchive):
		return mcp.NewToolResultError(fmt.Sprintf("book already exists in archive: %s", fp)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(map[string]any{"fingerprint": fp, "book": rec}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) bookSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("fingerprint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fp, err := fingerprint.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, ok, err := s.reg.Summary(ctx, fp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", fp)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) computeFingerprint(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.reg.Fingerprint([]byte(title), []byte(author)).String()), nil
}

func (s *Server) readFingerprintRule(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      fingerprintRuleURI,
			MIMEType: "text/markdown",
			Text:     FingerprintRule,
		},
	}, nil
}
