// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Recursa graph tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/recursa-hq/recursa/internal/apperr"
	"github.com/recursa-hq/recursa/internal/outline"
	"github.com/recursa-hq/recursa/internal/pageservice"
)

// Server wraps the MCP server with the Recursa tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all Recursa tools registered.
func New(svc *pageservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Recursa",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the full content of a graph page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. people/ada.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("write_page",
		mcp.WithDescription("Create or overwrite a page. Content MUST follow the block-outline "+
			"grammar (every line a `- ` block, 2-space indentation, properties as key:: value "+
			"below the root). Read the contract first via the get_page_contract tool or the "+
			"recursa://page-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the page (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Block-outline content following the page format contract")),
	), s.writePage)

	s.mcp.AddTool(mcp.NewTool("update_page",
		mcp.WithDescription("Replace the first occurrence of old_content in a page with new_content. "+
			"Fails if old_content is not found verbatim."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page")),
		mcp.WithString("old_content", mcp.Required(), mcp.Description("Exact content to replace")),
		mcp.WithString("new_content", mcp.Required(), mcp.Description("Replacement content")),
	), s.updatePage)

	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("Delete a page from the graph."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page")),
	), s.deletePage)

	s.mcp.AddTool(mcp.NewTool("rename_page",
		mcp.WithDescription("Move a page to a new path within the graph."),
		mcp.WithString("old_path", mcp.Required(), mcp.Description("Current relative path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("New relative path")),
	), s.renamePage)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all non-ignored files, optionally under a directory."),
		mcp.WithString("dir", mcp.Description("Optional directory to list (empty for the whole graph)")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("search_graph",
		mcp.WithDescription("Case-insensitive substring search across every page."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search string")),
	), s.searchGraph)

	s.mcp.AddTool(mcp.NewTool("query_graph",
		mcp.WithDescription("Evaluate a structured query over page properties and links. Syntax: "+
			"`(property key:: value)` and `(outgoing-link [[Target]])` clauses joined by AND."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query string")),
	), s.queryGraph)

	s.mcp.AddTool(mcp.NewTool("get_outgoing_links",
		mcp.WithDescription("List the wikilink targets of a page, in first-occurrence order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page")),
	), s.getOutgoingLinks)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages that link to the specified page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the page to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("save_checkpoint",
		mcp.WithDescription("Save the current working-tree state so it can be restored later. "+
			"Succeeds even when there is nothing to save."),
	), s.saveCheckpoint)

	s.mcp.AddTool(mcp.NewTool("revert_checkpoint",
		mcp.WithDescription("Restore the most recently saved checkpoint, discarding edits made since. "+
			"Reports when there is no checkpoint to revert to."),
	), s.revertCheckpoint)

	s.mcp.AddTool(mcp.NewTool("discard_changes",
		mcp.WithDescription("Irreversibly reset the graph to the last commit and remove untracked files."),
	), s.discardChanges)

	s.mcp.AddTool(mcp.NewTool("diff",
		mcp.WithDescription("Show the diff between two commits, or the uncommitted changes."),
		mcp.WithString("from", mcp.Description("Older commit ref (empty for working tree vs HEAD)")),
		mcp.WithString("to", mcp.Description("Newer commit ref")),
		mcp.WithString("path", mcp.Description("Optional path filter")),
	), s.diff)

	s.mcp.AddTool(mcp.NewTool("history",
		mcp.WithDescription("List recent commits, newest first."),
		mcp.WithString("path", mcp.Description("Optional path filter")),
	), s.history)

	s.mcp.AddTool(mcp.NewTool("commit",
		mcp.WithDescription("Record all working-tree changes as a commit with the given message."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Commit message")),
	), s.commit)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the canonical Recursa page format contract. "+
			"Call this before creating or updating pages to ensure correct structure."),
	), s.getPageContract)

	// Resource: page format contract.
	s.mcp.AddResource(
		mcp.NewResource("recursa://page-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical block-outline page format that all pages must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
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

// toolError maps domain errors onto tool results so validation details
// reach the caller instead of being collapsed to a generic failure.
func toolError(err error) *mcp.CallToolResult {
	var ve *outline.ValidationError
	if errors.As(err, &ve) {
		out, _ := json.MarshalIndent(ve.Errors, "", "  ")
		return mcp.NewToolResultError("page rejected by structural validator:\n" + string(out))
	}
	switch {
	case errors.Is(err, apperr.ErrTraversal):
		return mcp.NewToolResultError("path escapes the graph root")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("old content not found in page")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.GetPage(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(page.Content), nil
}

func (s *Server) writePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.WritePage(ctx, path, content); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s", path)), nil
}

func (s *Server) updatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	oldContent, err := req.RequireString("old_content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newContent, err := req.RequireString("new_content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.UpdatePage(ctx, path, oldContent, newContent); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", path)), nil
}

func (s *Server) deletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeletePage(ctx, path); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) renamePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath, err := req.RequireString("old_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RenamePage(ctx, oldPath, newPath); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", oldPath, newPath)), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := ""
	if d, err := req.RequireString("dir"); err == nil {
		dir = d
	}
	files, err := s.svc.ListFiles(ctx, dir)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) searchGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) queryGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Query(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getOutgoingLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.OutgoingLinks(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no outgoing links"), nil
	}
	return mcp.NewToolResultText(strings.Join(links, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) saveCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ok, err := s.svc.SaveCheckpoint(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%t", ok)), nil
}

func (s *Server) revertCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ok, err := s.svc.RevertToLastCheckpoint(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if !ok {
		return mcp.NewToolResultText("nothing to revert"), nil
	}
	return mcp.NewToolResultText("true"), nil
}

func (s *Server) discardChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ok, err := s.svc.DiscardChanges(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%t", ok)), nil
}

func (s *Server) diff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, path := "", "", ""
	if v, err := req.RequireString("from"); err == nil {
		from = v
	}
	if v, err := req.RequireString("to"); err == nil {
		to = v
	}
	if v, err := req.RequireString("path"); err == nil {
		path = v
	}
	out, err := s.svc.Diff(ctx, from, to, path)
	if err != nil {
		return toolError(err), nil
	}
	if out == "" {
		return mcp.NewToolResultText("no differences"), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) history(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := ""
	if v, err := req.RequireString("path"); err == nil {
		path = v
	}
	commits, err := s.svc.History(ctx, 50, path)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(commits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) commit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hash, err := s.svc.Commit(ctx, message)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("committed: %s", hash)), nil
}

func (s *Server) getPageContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readPageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "recursa://page-format",
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
