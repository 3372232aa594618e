package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-floor/utils"
)

// CycleOptions holds flags for the cycle command.
type CycleOptions struct {
	*RootOptions
	DryRun bool
	At     string
}

// NewCycleCommand creates the cycle command.
func NewCycleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CycleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one floor cycle and print its result as JSON",
		Long: `Run one floor cycle against the configured database and print the result.

With --dry-run nothing is written and nobody is notified; the command prints
what the cycle would do.

Example:
  floorctl cycle
  floorctl cycle --dry-run --at 2026-03-14T19:30:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "analyze without writing or notifying")
	cmd.Flags().StringVar(&opts.At, "at", "", "evaluate the floor at this RFC3339 instant instead of now")

	return cmd
}

func runCycle(cmd *cobra.Command, opts *CycleOptions) error {
	now := time.Now()
	if opts.At != "" {
		at, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = at
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	app, err := NewApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var out interface{}
	if opts.DryRun {
		out, err = app.Coordinator.Analyze(cmd.Context(), now)
	} else {
		result, cycleErr := app.Coordinator.RunCycle(cmd.Context(), now)
		if cycleErr == nil {
			utils.InfoLogger.WithFields(fieldsFor(result)).Info("cycle finished")
		}
		out, err = result, cycleErr
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
