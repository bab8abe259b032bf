package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphloom/graphloom/internal/graph"
)

var wipeYes bool

// wipeCmd represents the wipe command
var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every node and relationship in the graph",
	Long: `Wipe detaches and deletes everything in the configured Neo4j
database. There is no undo; the command refuses to run without --yes.

Example:
  graphloom wipe --yes`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	rootCmd.AddCommand(wipeCmd)

	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "confirm deletion")
}

func runWipe(cmd *cobra.Command, args []string) error {
	if !wipeYes {
		return fmt.Errorf("refusing to delete the graph without --yes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	graphCredentials(cfg)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := graph.Connect(ctx, cfg.Graph, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()

	if err := store.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Graph wiped\n")
	return nil
}
