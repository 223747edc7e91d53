package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

// JSONHandler implements the IOHandler interface for JSON-Lines communication.
//
// Each input line is either a command object ({"command":"click","args":["1","2"]}),
// a JSON string, or a plain command line. Each reply is one JSON object.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Output emits the reply as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, reply *Reply) error {
	if reply == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(reply)
}

// Input reads one line and normalizes it into a command line.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(text) == "") {
			return "", err
		}

		line, convErr := normalizeJSONLine(strings.TrimSpace(text))
		if convErr == nil {
			line, convErr = SanitizeInput(line)
		}
		if convErr != nil {
			if outErr := h.Output(ctx, &Reply{Error: convErr.Error()}); outErr != nil {
				return "", outErr
			}
			continue
		}
		return line, nil
	}
}

func normalizeJSONLine(text string) (string, error) {
	switch {
	case strings.HasPrefix(text, "{"):
		var cmd Command
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return "", err
		}
		return cmd.String(), nil
	case strings.HasPrefix(text, `"`):
		var val string
		if err := json.Unmarshal([]byte(text), &val); err != nil {
			return "", err
		}
		return val, nil
	}
	// Fallback: return raw text (e.g. if they just sent plain text)
	return text, nil
}

// SystemOutput emits {"system": msg}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(map[string]string{"system": msg})
}
