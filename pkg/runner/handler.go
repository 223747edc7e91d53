package runner

import "context"

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (REPL) and JSON (structured) modes.
type IOHandler interface {
	// Output presents the outcome of a command.
	Output(ctx context.Context, reply *Reply) error

	// Input reads the next command line from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. banners, prompts).
	// This is distinct from command replies.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms markdown content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
