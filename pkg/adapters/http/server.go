package http

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/observability"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

//go:embed openapi.yaml
var rawOpenAPI []byte

// Server exposes a session manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	metrics          *observability.Metrics
	logger           *slog.Logger
	validate         *validator.Validate
	openapi          *openapi3.T
	validateRequests bool
	cors             bool
	version          string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRequestValidation checks requests against the embedded OpenAPI
// document before they reach a handler (default on).
func WithRequestValidation(enabled bool) Option {
	return func(s *Server) {
		s.validateRequests = enabled
	}
}

// WithCORS toggles permissive CORS headers (default on).
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer builds a Server and subscribes its stream manager to session
// changes. The embedded OpenAPI document is loaded and validated here.
func NewServer(sessions *session.Manager, opts ...Option) (*Server, error) {
	doc, err := LoadOpenAPI()
	if err != nil {
		return nil, err
	}
	s := &Server{
		Sessions:         sessions,
		logger:           logging.NewNop(),
		validate:         validator.New(),
		openapi:          doc,
		validateRequests: true,
		cors:             true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	sessions.Observe(s.Streams.Observe)
	return s, nil
}

// NewHandler creates a new HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s, err := NewServer(sessions, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler()
}

// Handler assembles the router.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	if s.cors {
		r.Use(enableCORS)
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"name": "dotmap", "version": s.version})
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawOpenAPI)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	api := chi.NewRouter()
	if s.validateRequests {
		mw, err := s.requestValidator()
		if err != nil {
			return nil, err
		}
		api.Use(mw)
	}
	api.Get("/", s.ListSessions)
	api.Post("/", s.CreateSession)
	api.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Put("/snapshot", s.RestoreSnapshot)
		r.Get("/graph", s.GetGraph)
		r.Get("/events", s.SubscribeEvents)

		r.Post("/mode", s.SetMode)
		r.Post("/click", s.Click)
		r.Post("/pointer/down", s.PointerDown)
		r.Post("/pointer/move", s.PointerMove)
		r.Post("/pointer/up", s.PointerUp)
		r.Post("/pointer/leave", s.PointerLeave)
		r.Post("/select", s.Select)
		r.Post("/direction", s.SetDirection)
		r.Post("/dot", s.EditDot)
		r.Post("/connection", s.EditConnection)
		r.Post("/delete-selected", s.DeleteSelected)
		r.Post("/clear", s.ClearAll)
		r.Post("/undo", s.Undo)
		r.Post("/redo", s.Redo)
	})
	r.Mount("/sessions", api)

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; a failed write only means the client left.
	_ = json.NewEncoder(w).Encode(v)
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>dotmap API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
