package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-floor/config"
	"github.com/yeremiapane/restaurant-floor/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	LogLevel string

	// LoadConfig builds the configuration; tests replace it.
	LoadConfig func() (*config.Config, error)
}

// NewRootCommand creates the floorctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LoadConfig: config.Load}

	cmd := &cobra.Command{
		Use:   "floorctl",
		Short: "Restaurant floor manager",
		Long: `Runs the restaurant floor decision cycle: seats waiting parties at the
best fitting free tables, keeps queue positions and wait estimates current and
alerts staff about tables occupied for too long.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.EnvFile); err != nil && cmd.Flags().Changed("env-file") {
				return err
			}
			return utils.SetLogLevel(opts.LogLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCycleCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}
