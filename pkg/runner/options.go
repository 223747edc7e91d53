package runner

import (
	"log/slog"

	"github.com/aretw0/dotmap/pkg/session"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithSessions configures the session manager used for persistence.
func WithSessions(mgr *session.Manager) Option {
	return func(r *Runner) {
		r.Sessions = mgr
	}
}

// WithSessionID sets the session edited by the runner.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.SessionID = id
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithHeadless disables confirmations.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithInterceptor configures the command middleware.
func WithInterceptor(interceptor CommandInterceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}

// WithGreeting sets a system message shown before the first prompt.
func WithGreeting(msg string) Option {
	return func(r *Runner) {
		r.Greeting = msg
	}
}
