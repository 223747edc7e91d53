package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	SessionsURI        = "dotmap://sessions"
	SessionURITemplate = "dotmap://sessions/{id}"
	sessionURIPrefix   = "dotmap://sessions/"
)

// Server exposes the session manager as MCP tools and resources.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for tool failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   logging.NewNop(),
		mcpServer: server.NewMCPServer("dotmap-mcp", strings.TrimSpace(dotmap.Version),
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, true),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("MCP server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionParam := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to operate on"))
	x := mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x coordinate"))
	y := mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y coordinate"))
	dot := mcp.WithString("dot_id", mcp.Required(), mcp.Description("Target dot id"))
	result := mcp.WithOutputSchema[Result]()

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the ids of every stored session."),
	), s.HandleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Create an empty session, or return the existing one with that id."),
		mcp.WithString("session_id", mcp.Description("Session id; a random one is assigned when omitted")),
		result,
	), s.HandleStartSession)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return the current view of a session."),
		sessionParam, result,
	), s.HandleGetSession)

	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session and its stored snapshot."),
		sessionParam,
	), s.HandleDeleteSession)

	s.mcpServer.AddTool(mcp.NewTool("set_mode",
		mcp.WithDescription("Switch the interaction mode. The gesture and the selection are cleared."),
		sessionParam,
		mcp.WithString("mode", mcp.Required(), mcp.Enum("place", "connect", "adjust")),
		result,
	), s.HandleSetMode)

	s.mcpServer.AddTool(mcp.NewTool("click",
		mcp.WithDescription("Click the canvas. Place mode adds dots, connect mode links two dots, adjust mode selects."),
		sessionParam, x, y, result,
	), s.HandleClick)

	s.mcpServer.AddTool(mcp.NewTool("pointer",
		mcp.WithDescription("Send a raw pointer event. In adjust mode down/move/up rotate a dot; leave cancels the drag."),
		sessionParam,
		mcp.WithString("event", mcp.Required(), mcp.Enum("down", "move", "up", "leave")),
		mcp.WithNumber("x", mcp.Description("Canvas x coordinate, required for down and move")),
		mcp.WithNumber("y", mcp.Description("Canvas y coordinate, required for down and move")),
		result,
	), s.HandlePointer)

	s.mcpServer.AddTool(mcp.NewTool("select_dot",
		mcp.WithDescription("Select exactly one dot."),
		sessionParam, dot, result,
	), s.HandleSelect)

	s.mcpServer.AddTool(mcp.NewTool("set_direction",
		mcp.WithDescription("Set a dot heading in degrees; values wrap into [0, 360)."),
		sessionParam, dot,
		mcp.WithNumber("degrees", mcp.Required()),
		result,
	), s.HandleSetDirection)

	s.mcpServer.AddTool(mcp.NewTool("edit_dot",
		mcp.WithDescription("Set the label and/or color of a dot. Omitted fields are left alone."),
		sessionParam, dot,
		mcp.WithString("label"),
		mcp.WithString("color"),
		result,
	), s.HandleEditDot)

	s.mcpServer.AddTool(mcp.NewTool("edit_connection",
		mcp.WithDescription("Set the stroke style, color and label of a connection."),
		sessionParam,
		mcp.WithString("connection_id", mcp.Required()),
		mcp.WithString("style", mcp.Enum("solid", "dashed", "dotted")),
		mcp.WithString("color"),
		mcp.WithString("label"),
		result,
	), s.HandleEditConnection)

	s.mcpServer.AddTool(mcp.NewTool("delete_selected",
		mcp.WithDescription("Delete the selected dot and every connection touching it."),
		sessionParam, result,
	), s.HandleDeleteSelected)

	s.mcpServer.AddTool(mcp.NewTool("clear_all",
		mcp.WithDescription("Remove every dot and connection."),
		sessionParam, result,
	), s.HandleClearAll)

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Step back one snapshot in the history."),
		sessionParam, result,
	), s.HandleUndo)

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Step forward one snapshot in the history."),
		sessionParam, result,
	), s.HandleRedo)

	s.mcpServer.AddTool(mcp.NewTool("restore_snapshot",
		mcp.WithDescription("Replace the canvas with a snapshot. The history restarts at it."),
		sessionParam,
		mcp.WithString("snapshot", mcp.Required(), mcp.Description("JSON object with dots and connections arrays")),
		result,
	), s.HandleRestoreSnapshot)

	s.mcpServer.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Render the session canvas as a Mermaid flowchart."),
		sessionParam,
	), s.HandleRenderGraph)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored sessions",
		mcp.WithMIMEType("application/json"),
	), s.readSessions)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(SessionURITemplate, "Session view",
		mcp.WithTemplateDescription("Current mode, snapshot and history position of a session"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSession)
}
