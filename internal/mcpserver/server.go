// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Sheaf tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/noteservice"
	"github.com/starford/sheaf/internal/share"
)

const contractURI = "sheaf://note-format"

// Server wraps the MCP server with Sheaf tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	viewer *share.Viewer
}

// New creates a new MCP server with all Sheaf tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc, viewer: svc.NewViewer()}

	s.mcp = server.NewMCPServer(
		"Sheaf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes with their preview text, pinned notes first."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithString("folder", mcp.Description("Optional folder id; \"root\" lists unfiled notes")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note: title, block document, tags and folder breadcrumb."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. The document MUST follow the block document "+
			"contract; read it first via the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("id", mcp.Description("Optional note id (letters, digits, '-' and '_'); generated when empty")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("doc", mcp.Description("Block document as a JSON array string")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("preview_note",
		mcp.WithDescription("Return the short preview text and first image of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.previewNote)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Render a note as a standalone printable HTML document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.renderNote)

	s.mcp.AddTool(mcp.NewTool("share_note",
		mcp.WithDescription("Publish a note and return a shareable link."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("origin", mcp.Description("Optional origin overriding the configured one")),
	), s.shareNote)

	s.mcp.AddTool(mcp.NewTool("resolve_share",
		mcp.WithDescription("Resolve a shared link back into its title and document."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Shared link")),
	), s.resolveShare)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Sheaf block document contract. "+
			"Call this before creating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Block document format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := noteservice.ListParams{Limit: 200, Tag: req.GetString("tag", "")}
	switch folder := req.GetString("folder", ""); folder {
	case "":
	case "root":
		root := ""
		params.Folder = &root
	default:
		params.Folder = &folder
	}

	items, _, err := s.svc.ListNotes(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := noteservice.NoteInput{ID: req.GetString("id", ""), Title: title}
	if doc := req.GetString("doc", ""); doc != "" {
		if !json.Valid([]byte(doc)) {
			return mcp.NewToolResultError("doc is not valid JSON"), nil
		}
		in.Doc = json.RawMessage(doc)
	}

	note, err := s.svc.CreateNote(ctx, in)
	if err != nil {
		return toolError(in.ID, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) previewNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Fetch(ctx, id); err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(s.svc.Preview(id))
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	html, err := s.svc.Print(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(html), nil
}

func (s *Server) shareNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := s.svc.Share(ctx, id, req.GetString("origin", ""))
	if err != nil {
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(link), nil
}

func (s *Server) resolveShare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, applied := s.viewer.Open(ctx, share.ParseLocation(raw))
	switch {
	case !applied:
		return mcp.NewToolResultError("superseded by a newer resolve_share call"), nil
	case state.Invalid:
		return mcp.NewToolResultError("link invalid or content not found"), nil
	}
	return jsonResult(struct {
		*share.Payload
		Views int `json:"views,omitempty"`
	}{state.Payload, state.Views})
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(id string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", id))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
