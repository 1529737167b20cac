// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the picker session as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/steam"
	"github.com/starford/idlepick/internal/storage"
)

const csvFormatURI = "idlepick://csv-format"

// Server wraps the MCP server with picker tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *picker.Session
	exports  storage.Provider
	coverage steam.Coverage
}

// New creates a new MCP server with all tools registered.
func New(svc *picker.Session, exports storage.Provider, coverage steam.Coverage, version string) *Server {
	s := &Server{svc: svc, exports: exports, coverage: coverage}

	s.mcp = server.NewMCPServer(
		"idlepick",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("fetch_games",
		mcp.WithDescription("Load the owned Steam catalog. Replaces the current catalog and clears the selection. "+
			"api_key and identity default to the remembered credentials."),
		mcp.WithString("api_key", mcp.Description("Steam Web API key")),
		mcp.WithString("identity", mcp.Description("SteamID64, profile URL or vanity name")),
		mcp.WithBoolean("max_coverage", mcp.Description("Include free games and unvetted apps (default from config)")),
	), s.fetchGames)

	s.mcp.AddTool(mcp.NewTool("search_games",
		mcp.WithDescription("List catalog games whose name contains query (case-insensitive), sorted by name, with their selected state."),
		mcp.WithString("query", mcp.Description("Substring filter; empty lists everything")),
	), s.searchGames)

	s.mcp.AddTool(mcp.NewTool("select_games",
		mcp.WithDescription("Select games by app id."),
		mcp.WithString("appids", mcp.Required(), mcp.Description("Comma or space separated app ids")),
	), s.selectGames)

	s.mcp.AddTool(mcp.NewTool("deselect_games",
		mcp.WithDescription("Deselect games by app id."),
		mcp.WithString("appids", mcp.Required(), mcp.Description("Comma or space separated app ids")),
	), s.deselectGames)

	s.mcp.AddTool(mcp.NewTool("select_visible",
		mcp.WithDescription("Select (or deselect) every game matching query. Games not matching are untouched."),
		mcp.WithString("query", mcp.Description("Substring filter; empty matches everything")),
		mcp.WithBoolean("checked", mcp.Description("true to select, false to deselect (default true)")),
	), s.selectVisible)

	s.mcp.AddTool(mcp.NewTool("clear_selection",
		mcp.WithDescription("Deselect everything."),
	), s.clearSelection)

	s.mcp.AddTool(mcp.NewTool("export_selection",
		mcp.WithDescription("Write games.ps1, selected_games.csv and start.bat for the selected games."),
	), s.exportSelection)

	s.mcp.AddTool(mcp.NewTool("import_csv",
		mcp.WithDescription("Merge app ids from CSV text into the selection. Read the format first via "+
			"get_csv_format or the "+csvFormatURI+" resource."),
		mcp.WithString("csv", mcp.Required(), mcp.Description("CSV content; the first column is the app id")),
	), s.importCSV)

	s.mcp.AddTool(mcp.NewTool("get_csv_format",
		mcp.WithDescription("Returns the selection CSV format used by export and import."),
	), s.getCSVFormat)

	s.mcp.AddTool(mcp.NewTool("forget_credentials",
		mcp.WithDescription("Erase the remembered API key and identity."),
	), s.forgetCredentials)

	s.mcp.AddResource(
		mcp.NewResource(csvFormatURI, "Selection CSV Format",
			mcp.WithResourceDescription("Layout of selected_games.csv and the import rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCSVFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

// toolError turns a session error into a tool error with a short hint.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNoCatalog):
		return mcp.NewToolResultError("no catalog loaded: call fetch_games first")
	case errors.Is(err, apperr.ErrEmptySelection):
		return mcp.NewToolResultError("nothing selected: select games before exporting")
	}
	return mcp.NewToolResultError(err.Error())
}

func parseIDs(raw string) ([]models.AppID, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no app ids given", apperr.ErrValidation)
	}
	ids := make([]models.AppID, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an app id", apperr.ErrValidation, f)
		}
		ids = append(ids, models.AppID(n))
	}
	return ids, nil
}

func (s *Server) fetchGames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fr := picker.FetchRequest{
		APIKey:   req.GetString("api_key", ""),
		Identity: req.GetString("identity", ""),
		Coverage: s.coverage,
	}
	fr, err := s.svc.Remembered(fr)
	if err != nil {
		return toolError(err), nil
	}
	if args := req.GetArguments(); args != nil {
		if _, ok := args["max_coverage"]; ok {
			fr.Coverage.Max = req.GetBool("max_coverage", fr.Coverage.Max)
		}
	}

	res, err := s.svc.Fetch(ctx, fr)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

type gameRow struct {
	AppID   models.AppID `json:"appid"`
	Name    string       `json:"name"`
	Checked bool         `json:"checked"`
}

func (s *Server) searchGames(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := req.GetString("query", "")
	rows := s.svc.Render(q)
	out := make([]gameRow, len(rows))
	for i, r := range rows {
		out[i] = gameRow{AppID: r.Entry.ID, Name: r.Name, Checked: r.Checked}
	}
	return jsonResult(map[string]any{
		"games":  out,
		"status": s.svc.Summary(q).String(),
	}), nil
}

func (s *Server) selectGames(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setGames(req, true)
}

func (s *Server) deselectGames(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setGames(req, false)
}

func (s *Server) setGames(req mcp.CallToolRequest, on bool) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("appids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := parseIDs(raw)
	if err != nil {
		return toolError(err), nil
	}

	var failed []string
	for _, id := range ids {
		var err error
		if on {
			err = s.svc.Check(id)
		} else {
			err = s.svc.Uncheck(id)
		}
		if errors.Is(err, apperr.ErrNoCatalog) {
			return toolError(err), nil
		}
		if err != nil {
			failed = append(failed, id.String())
		}
	}

	msg := s.svc.Summary("").String()
	if len(failed) > 0 {
		msg += "\nnot in catalog: " + strings.Join(failed, ", ")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) selectVisible(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := req.GetString("query", "")
	var n int
	if req.GetBool("checked", true) {
		n = s.svc.SelectVisible(q)
	} else {
		n = s.svc.DeselectVisible(q)
	}
	return mcp.NewToolResultText(fmt.Sprintf("changed: %d\n%s", n, s.svc.Summary(q))), nil
}

func (s *Server) clearSelection(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.svc.ClearAll()
	return mcp.NewToolResultText(fmt.Sprintf("cleared: %d", n)), nil
}

func (s *Server) exportSelection(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Export(ctx, s.exports)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) importCSV(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("csv")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Import(strings.NewReader(text))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getCSVFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CSVFormatContract), nil
}

func (s *Server) forgetCredentials(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Forget()
	return mcp.NewToolResultText("credentials forgotten"), nil
}

func (s *Server) readCSVFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      csvFormatURI,
			MIMEType: "text/markdown",
			Text:     CSVFormatContract,
		},
	}, nil
}
