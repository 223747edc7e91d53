package main

import (
	"fmt"

	"github.com/aretw0/dotmap/internal/presentation/graph"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <session-id>",
	Short: "Export a session as a Mermaid diagram",
	Long:  `Loads a stored session and prints its canvas as a Mermaid flowchart (graph LR).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closer, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := domain.ValidateSessionID(args[0]); err != nil {
			return err
		}
		stored, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(stored.Snapshot, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
