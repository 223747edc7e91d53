package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/presentation/graph"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/runner"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

var errInvalidArguments = errors.New("invalid arguments")

// Result is the structured output of every editing tool.
type Result struct {
	Changed bool          `json:"changed" jsonschema_description:"Whether the operation committed a snapshot or switched mode"`
	View    *session.View `json:"view" jsonschema_description:"The session after the operation"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type pointArgs struct {
	SessionID string   `json:"session_id"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
}

func (a pointArgs) point() (float64, float64, error) {
	if a.X == nil || a.Y == nil {
		return 0, 0, fmt.Errorf("%w: x and y are required", errInvalidArguments)
	}
	return *a.X, *a.Y, nil
}

type modeArgs struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

type pointerArgs struct {
	pointArgs
	Event string `json:"event"`
}

type dotArgs struct {
	SessionID string   `json:"session_id"`
	DotID     string   `json:"dot_id"`
	Degrees   *float64 `json:"degrees"`
	Label     *string  `json:"label"`
	Color     *string  `json:"color"`
}

type connectionArgs struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"connection_id"`
	Style        string `json:"style"`
	Color        string `json:"color"`
	Label        string `json:"label"`
}

type snapshotArgs struct {
	SessionID string `json:"session_id"`
	Snapshot  string `json:"snapshot"`
}

// codeOf maps an error to the stable code reported to clients.
func codeOf(err error) string {
	var invariant *domain.InvariantError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidSessionID):
		return "INVALID_SESSION_ID"
	case errors.Is(err, domain.ErrInvalidMode):
		return "INVALID_MODE"
	case errors.Is(err, domain.ErrInvalidStyle):
		return "INVALID_STYLE"
	case errors.As(err, &invariant):
		return "INVALID_SNAPSHOT"
	case errors.Is(err, errInvalidArguments), runner.IsInvalidInput(err):
		return "INVALID_REQUEST"
	}
	return "INTERNAL"
}

// errorResult reports a failure with IsError set. Internal error details are
// not exposed.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	code := codeOf(err)
	message := err.Error()
	if code == "INTERNAL" {
		s.logger.Error("MCP tool failed", "tool", tool, "err", err)
		message = "an internal error occurred"
	} else {
		s.logger.Warn("MCP tool rejected", "tool", tool, "code", code, "err", err)
	}
	content, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// operate runs fn on the session editor and returns the new view.
func (s *Server) operate(ctx context.Context, tool, sessionID string, fn func(*dotmap.Editor) (bool, error)) (*mcp.CallToolResult, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return s.errorResult(tool, err), nil
	}
	var changed bool
	view, err := s.sessions.Do(ctx, sessionID, func(ed *dotmap.Editor) error {
		var opErr error
		changed, opErr = fn(ed)
		return opErr
	})
	if err != nil {
		return s.errorResult(tool, err), nil
	}
	return mcp.NewToolResultJSON(Result{Changed: changed, View: view})
}

// simple adapts an argument-free editor operation to a tool handler.
func (s *Server) simple(tool string, op func(*dotmap.Editor) bool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[sessionArgs](req)
		if err != nil {
			return s.errorResult(tool, err), nil
		}
		return s.operate(ctx, tool, args.SessionID, func(ed *dotmap.Editor) (bool, error) {
			return op(ed), nil
		})
	}
}

// HandleListSessions handles list_sessions.
func (s *Server) HandleListSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return s.errorResult("list_sessions", err), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return mcp.NewToolResultJSON(map[string][]string{"sessions": ids})
}

// HandleStartSession handles start_session.
func (s *Server) HandleStartSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[sessionArgs](req)
	if err != nil {
		return s.errorResult("start_session", err), nil
	}
	if args.SessionID == "" {
		args.SessionID = uuid.NewString()
	}
	view, err := s.sessions.Start(ctx, args.SessionID)
	if err != nil {
		return s.errorResult("start_session", err), nil
	}
	return mcp.NewToolResultJSON(Result{View: view})
}

// HandleGetSession handles get_session.
func (s *Server) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[sessionArgs](req)
	if err != nil {
		return s.errorResult("get_session", err), nil
	}
	view, err := s.load(ctx, args.SessionID)
	if err != nil {
		return s.errorResult("get_session", err), nil
	}
	return mcp.NewToolResultJSON(Result{View: view})
}

// HandleDeleteSession handles delete_session.
func (s *Server) HandleDeleteSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[sessionArgs](req)
	if err != nil {
		return s.errorResult("delete_session", err), nil
	}
	if err := domain.ValidateSessionID(args.SessionID); err != nil {
		return s.errorResult("delete_session", err), nil
	}
	if err := s.sessions.Delete(ctx, args.SessionID); err != nil {
		return s.errorResult("delete_session", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("session %s deleted", args.SessionID)), nil
}

// HandleSetMode handles set_mode.
func (s *Server) HandleSetMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[modeArgs](req)
	if err != nil {
		return s.errorResult("set_mode", err), nil
	}
	mode, err := domain.ParseMode(args.Mode)
	if err != nil {
		return s.errorResult("set_mode", err), nil
	}
	return s.operate(ctx, "set_mode", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		prev := ed.Mode()
		committed := ed.SetMode(mode)
		return committed || prev != mode, nil
	})
}

// HandleClick handles click.
func (s *Server) HandleClick(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[pointArgs](req)
	if err != nil {
		return s.errorResult("click", err), nil
	}
	x, y, err := args.point()
	if err != nil {
		return s.errorResult("click", err), nil
	}
	return s.operate(ctx, "click", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return ed.Click(x, y), nil
	})
}

// HandlePointer handles pointer.
func (s *Server) HandlePointer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[pointerArgs](req)
	if err != nil {
		return s.errorResult("pointer", err), nil
	}

	var op func(*dotmap.Editor) bool
	switch strings.ToLower(args.Event) {
	case "down", "move":
		x, y, err := args.point()
		if err != nil {
			return s.errorResult("pointer", err), nil
		}
		if strings.EqualFold(args.Event, "down") {
			op = func(ed *dotmap.Editor) bool { return ed.PointerDown(x, y) }
		} else {
			op = func(ed *dotmap.Editor) bool { return ed.PointerMove(x, y) }
		}
	case "up":
		op = (*dotmap.Editor).PointerUp
	case "leave":
		op = (*dotmap.Editor).PointerLeave
	default:
		return s.errorResult("pointer", fmt.Errorf("%w: unknown pointer event %q", errInvalidArguments, args.Event)), nil
	}
	return s.operate(ctx, "pointer", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return op(ed), nil
	})
}

// HandleSelect handles select_dot.
func (s *Server) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[dotArgs](req)
	if err != nil {
		return s.errorResult("select_dot", err), nil
	}
	return s.operate(ctx, "select_dot", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return ed.Select(args.DotID), nil
	})
}

// HandleSetDirection handles set_direction. Fractional degrees are rounded.
func (s *Server) HandleSetDirection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[dotArgs](req)
	if err != nil {
		return s.errorResult("set_direction", err), nil
	}
	if args.Degrees == nil {
		return s.errorResult("set_direction", fmt.Errorf("%w: degrees is required", errInvalidArguments)), nil
	}
	degrees := int(math.Round(*args.Degrees))
	return s.operate(ctx, "set_direction", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return ed.SetDirection(args.DotID, degrees), nil
	})
}

// HandleEditDot handles edit_dot.
func (s *Server) HandleEditDot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[dotArgs](req)
	if err != nil {
		return s.errorResult("edit_dot", err), nil
	}
	label, err := runner.SanitizeOptional(args.Label, runner.SanitizeLabel)
	if err != nil {
		return s.errorResult("edit_dot", err), nil
	}
	color, err := runner.SanitizeOptional(args.Color, runner.SanitizeColor)
	if err != nil {
		return s.errorResult("edit_dot", err), nil
	}
	return s.operate(ctx, "edit_dot", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return ed.EditDot(args.DotID, label, color), nil
	})
}

// HandleEditConnection handles edit_connection.
func (s *Server) HandleEditConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[connectionArgs](req)
	if err != nil {
		return s.errorResult("edit_connection", err), nil
	}
	if _, err := domain.ParseConnectionStyle(args.Style); err != nil {
		return s.errorResult("edit_connection", err), nil
	}
	label, err := runner.SanitizeLabel(args.Label)
	if err != nil {
		return s.errorResult("edit_connection", err), nil
	}
	color, err := runner.SanitizeColor(args.Color)
	if err != nil {
		return s.errorResult("edit_connection", err), nil
	}
	return s.operate(ctx, "edit_connection", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		return ed.SetConnectionStyle(args.ConnectionID, args.Style, color, label), nil
	})
}

// HandleDeleteSelected handles delete_selected.
func (s *Server) HandleDeleteSelected(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.simple("delete_selected", (*dotmap.Editor).DeleteSelected)(ctx, req)
}

// HandleClearAll handles clear_all.
func (s *Server) HandleClearAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.simple("clear_all", (*dotmap.Editor).ClearAll)(ctx, req)
}

// HandleUndo handles undo.
func (s *Server) HandleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.simple("undo", (*dotmap.Editor).Undo)(ctx, req)
}

// HandleRedo handles redo.
func (s *Server) HandleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.simple("redo", (*dotmap.Editor).Redo)(ctx, req)
}

// HandleRestoreSnapshot handles restore_snapshot.
func (s *Server) HandleRestoreSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[snapshotArgs](req)
	if err != nil {
		return s.errorResult("restore_snapshot", err), nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(args.Snapshot), &snap); err != nil {
		return s.errorResult("restore_snapshot", fmt.Errorf("%w: snapshot: %v", errInvalidArguments, err)), nil
	}
	return s.operate(ctx, "restore_snapshot", args.SessionID, func(ed *dotmap.Editor) (bool, error) {
		if err := ed.Restore(snap); err != nil {
			return false, err
		}
		return true, nil
	})
}

// HandleRenderGraph handles render_graph.
func (s *Server) HandleRenderGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[sessionArgs](req)
	if err != nil {
		return s.errorResult("render_graph", err), nil
	}
	view, err := s.load(ctx, args.SessionID)
	if err != nil {
		return s.errorResult("render_graph", err), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(view.Snapshot, graph.OverlayFrom(view.Gesture))), nil
}

func (s *Server) load(ctx context.Context, id string) (*session.View, error) {
	if err := domain.ValidateSessionID(id); err != nil {
		return nil, err
	}
	return s.sessions.Load(ctx, id)
}

func (s *Server) readSessions(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: SessionsURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) readSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	view, err := s.load(ctx, strings.TrimPrefix(uri, sessionURIPrefix))
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
