package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/presentation/tui"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/runner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit a diagram interactively",
	Long: `Starts a line-oriented editor. Type 'help' for the command list.

With --session the canvas is persisted in the configured store and resumed on
the next run. Without it a fresh session with a random id is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		headless, _ := cmd.Flags().GetBool("headless")
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		mgr, closer, err := newManager(cfg, domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closer.Close()

		opts := []runner.Option{
			runner.WithSessions(mgr),
			runner.WithSessionID(sessionID),
			runner.WithLogger(logger),
			runner.WithHeadless(headless || jsonMode),
		}

		interactive := runner.IsTerminal(os.Stdin) && !jsonMode
		switch {
		case jsonMode:
			opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, os.Stdout)))
		case interactive:
			tui.PrintBanner(os.Stdout, strings.TrimSpace(dotmap.Version))
			width := runner.TerminalWidth(os.Stdout, 80)
			opts = append(opts,
				runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout,
					runner.WithTextHandlerRenderer(tui.NewRenderer(width)),
				)),
				runner.WithGreeting(fmt.Sprintf("session %s. Type 'help' for commands.", sessionID)),
			)
		default:
			opts = append(opts, runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout,
				runner.WithTextHandlerPrompt(""),
			)))
		}

		return runner.NewRunner(opts...).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().Bool("json", false, "Read and write NDJSON instead of text")
	replCmd.Flags().Bool("headless", false, "Skip confirmation prompts")
	replCmd.Flags().String("session", "", "Session id to create or resume")

	rootCmd.RunE = replCmd.RunE
	rootCmd.Flags().AddFlagSet(replCmd.Flags())
}
