package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-floor/database"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo floor (8 tables, 3 waiting parties) into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return err
			}
			cfg.SeedOnStart = false

			app, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			seeded, err := database.Seed(cmd.Context(), app.DB, time.Now())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "demo floor created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "floor already has tables, nothing to do")
			}
			return nil
		},
	}
}
