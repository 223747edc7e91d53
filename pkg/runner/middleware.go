package runner

import (
	"context"
	"fmt"
	"strings"
)

// CommandInterceptor is a middleware that can block a command before it runs.
// It returns true if execution should proceed.
type CommandInterceptor func(ctx context.Context, cmd Command) (bool, error)

// Destructive maps commands that discard work in one step to their
// confirmation question.
var Destructive = map[string]string{
	"clear":  "Remove every dot and connection?",
	"delete": "Delete the selected dot and its connections?",
}

// MultiInterceptor chains multiple interceptors.
func MultiInterceptor(interceptors ...CommandInterceptor) CommandInterceptor {
	return func(ctx context.Context, cmd Command) (bool, error) {
		for _, interceptor := range interceptors {
			allowed, err := interceptor(ctx, cmd)
			if err != nil {
				return false, err // System Error
			}
			if !allowed {
				return false, nil // Blocked by policy
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware asks the user via the provided Handler before
// running a destructive command.
func ConfirmationMiddleware(handler IOHandler) CommandInterceptor {
	return func(ctx context.Context, cmd Command) (bool, error) {
		question, ok := Destructive[cmd.Name]
		if !ok {
			return true, nil
		}
		if err := handler.SystemOutput(ctx, fmt.Sprintf("%s [y/N]", question)); err != nil {
			return false, err
		}

		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() CommandInterceptor {
	return func(ctx context.Context, cmd Command) (bool, error) {
		return true, nil
	}
}
