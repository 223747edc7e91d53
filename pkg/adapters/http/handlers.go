package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/presentation/graph"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/runner"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// maxBodySize bounds request bodies; snapshots are the largest.
const maxBodySize = 4 << 20

// Result is returned by every editor operation.
type Result struct {
	Changed bool          `json:"changed"`
	View    *session.View `json:"view"`
}

type createSessionRequest struct {
	ID string `json:"id" validate:"omitempty,max=128"`
}

type pointRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=place connect adjust"`
}

type selectRequest struct {
	DotID string `json:"dot_id" validate:"required"`
}

type directionRequest struct {
	DotID   string `json:"dot_id" validate:"required"`
	Degrees *int   `json:"degrees" validate:"required"`
}

type dotRequest struct {
	DotID string  `json:"dot_id" validate:"required"`
	Label *string `json:"label"`
	Color *string `json:"color"`
}

type connectionRequest struct {
	ConnectionID string `json:"connection_id" validate:"required"`
	Style        string `json:"style" validate:"omitempty,oneof=solid dashed dotted"`
	Color        string `json:"color"`
	Label        string `json:"label"`
}

// decode reads a JSON body into T and validates its struct tags.
func decode[T any](s *Server, r *http.Request) (*T, error) {
	var body T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

// sessionID binds and checks the {id} path parameter.
func (s *Server) sessionID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := domain.ValidateSessionID(id); err != nil {
		return "", err
	}
	return id, nil
}

// operate runs fn on the session editor and replies with the new view.
func (s *Server) operate(w http.ResponseWriter, r *http.Request, fn func(*dotmap.Editor) (bool, error)) {
	id, err := s.sessionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var changed bool
	view, err := s.Sessions.Do(r.Context(), id, func(ed *dotmap.Editor) error {
		var opErr error
		changed, opErr = fn(ed)
		return opErr
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Changed: changed, View: view})
}

func ok(changed bool) (bool, error) {
	return changed, nil
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSession handles POST /sessions. Without an id in the body a random
// one is assigned.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var req createSessionRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		body, err := decode[createSessionRequest](s, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		req = *body
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	view, err := s.Sessions.Start(r.Context(), req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreSnapshot handles PUT /sessions/{id}/snapshot. The history restarts
// at the uploaded snapshot.
func (s *Server) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := decode[domain.Snapshot](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
		if err := ed.Restore(*snap); err != nil {
			return false, err
		}
		return true, nil
	})
}

// GetGraph handles GET /sessions/{id}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(view.Snapshot, graph.OverlayFrom(view.Gesture)))
}

// SetMode handles POST /sessions/{id}/mode.
func (s *Server) SetMode(w http.ResponseWriter, r *http.Request) {
	body, err := decode[modeRequest](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := domain.ParseMode(body.Mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
		prev := ed.Mode()
		committed := ed.SetMode(mode)
		return committed || prev != mode, nil
	})
}

func (s *Server) pointer(fn func(*dotmap.Editor, float64, float64) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decode[pointRequest](s, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
			return ok(fn(ed, *body.X, *body.Y))
		})
	}
}

// Click handles POST /sessions/{id}/click.
func (s *Server) Click(w http.ResponseWriter, r *http.Request) {
	s.pointer((*dotmap.Editor).Click)(w, r)
}

// PointerDown handles POST /sessions/{id}/pointer/down.
func (s *Server) PointerDown(w http.ResponseWriter, r *http.Request) {
	s.pointer((*dotmap.Editor).PointerDown)(w, r)
}

// PointerMove handles POST /sessions/{id}/pointer/move.
func (s *Server) PointerMove(w http.ResponseWriter, r *http.Request) {
	s.pointer((*dotmap.Editor).PointerMove)(w, r)
}

// PointerUp handles POST /sessions/{id}/pointer/up.
func (s *Server) PointerUp(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.PointerUp()) })
}

// PointerLeave handles POST /sessions/{id}/pointer/leave.
func (s *Server) PointerLeave(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.PointerLeave()) })
}

// Select handles POST /sessions/{id}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	body, err := decode[selectRequest](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.Select(body.DotID)) })
}

// SetDirection handles POST /sessions/{id}/direction.
func (s *Server) SetDirection(w http.ResponseWriter, r *http.Request) {
	body, err := decode[directionRequest](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
		return ok(ed.SetDirection(body.DotID, *body.Degrees))
	})
}

// EditDot handles POST /sessions/{id}/dot. Absent fields are left alone.
func (s *Server) EditDot(w http.ResponseWriter, r *http.Request) {
	body, err := decode[dotRequest](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	label, color, err := sanitizeMetadata(body.Label, body.Color)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
		return ok(ed.EditDot(body.DotID, label, color))
	})
}

// EditConnection handles POST /sessions/{id}/connection.
func (s *Server) EditConnection(w http.ResponseWriter, r *http.Request) {
	body, err := decode[connectionRequest](s, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	label, color, err := sanitizeMetadata(&body.Label, &body.Color)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) {
		return ok(ed.SetConnectionStyle(body.ConnectionID, body.Style, *color, *label))
	})
}

// DeleteSelected handles POST /sessions/{id}/delete-selected.
func (s *Server) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.DeleteSelected()) })
}

// ClearAll handles POST /sessions/{id}/clear.
func (s *Server) ClearAll(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.ClearAll()) })
}

// Undo handles POST /sessions/{id}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.Undo()) })
}

// Redo handles POST /sessions/{id}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.operate(w, r, func(ed *dotmap.Editor) (bool, error) { return ok(ed.Redo()) })
}

// sanitizeMetadata cleans an optional label and color.
func sanitizeMetadata(label, color *string) (*string, *string, error) {
	l, err := runner.SanitizeOptional(label, runner.SanitizeLabel)
	if err != nil {
		return nil, nil, err
	}
	c, err := runner.SanitizeOptional(color, runner.SanitizeColor)
	if err != nil {
		return nil, nil, err
	}
	return l, c, nil
}
