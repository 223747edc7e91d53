package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/adapters/memory"
	"github.com/aretw0/dotmap/pkg/session"
)

// DefaultSessionID names the session of a runner without WithSessionID.
const DefaultSessionID = "default"

// Runner drives one editing session from an IOHandler: it reads command
// lines, runs them through the session manager and presents the replies.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Interceptor may veto commands. Defaults to AutoApprove when headless,
	// ConfirmationMiddleware otherwise.
	Interceptor CommandInterceptor

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Sessions persists the edited canvas. Defaults to an in-memory store.
	Sessions *session.Manager

	SessionID string
	Headless  bool
	Greeting  string
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		SessionID: DefaultSessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command loop until the input ends, the user types exit,
// an interrupt arrives or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	handler := r.resolveHandler()
	interceptor := r.resolveInterceptor(handler)
	sessions := r.resolveSessions()

	view, err := sessions.Start(ctx, r.SessionID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	r.Logger.Debug("session ready", "session_id", r.SessionID, "dots", view.Stats.Dots)

	if r.Greeting != "" {
		if err := handler.SystemOutput(ctx, r.Greeting); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	for {
		loopCtx := signals.Context()

		line, err := handler.Input(loopCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			signals.CheckRace()
			if loopCtx.Err() != nil {
				r.Logger.Debug("runner interrupted", "err", loopCtx.Err())
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		cmd, ok := ParseCommand(line)
		if !ok {
			continue
		}
		if cmd.Name == "exit" {
			return nil
		}

		allowed, err := interceptor(loopCtx, cmd)
		if err != nil {
			if loopCtx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("command interceptor error: %w", err)
		}
		if !allowed {
			if err := handler.Output(loopCtx, &Reply{Command: cmd.Name, Message: "canceled"}); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		}

		reply, err := r.step(loopCtx, sessions, cmd)
		if err != nil {
			return err
		}
		if err := handler.Output(loopCtx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}

// step runs one command under the session lock. Command mistakes become
// reply errors; persistence failures end the loop.
func (r *Runner) step(ctx context.Context, sessions *session.Manager, cmd Command) (*Reply, error) {
	var (
		reply  Reply
		cmdErr error
	)
	view, err := sessions.Do(ctx, r.SessionID, func(ed *dotmap.Editor) error {
		reply, cmdErr = Execute(ed, cmd)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("critical persistence error: %w", err)
	}

	if cmdErr != nil {
		r.Logger.Debug("command rejected", "command", cmd.String(), "err", cmdErr)
		return &Reply{Command: cmd.Name, Error: cmdErr.Error()}, nil
	}
	reply.View = view
	return &reply, nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r.Handler
}

// resolveInterceptor returns the configured or default interceptor.
func (r *Runner) resolveInterceptor(h IOHandler) CommandInterceptor {
	if r.Interceptor != nil {
		return r.Interceptor
	}
	if r.Headless {
		return AutoApproveMiddleware()
	}
	return ConfirmationMiddleware(h)
}

func (r *Runner) resolveSessions() *session.Manager {
	if r.Sessions == nil {
		r.Sessions = session.NewManager(memory.NewStore(), session.WithLogger(r.Logger))
	}
	return r.Sessions
}
