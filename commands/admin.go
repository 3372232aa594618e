package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/models"
)

// AdminOptions holds flags for the create-admin command.
type AdminOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
}

// NewAdminCommand creates the create-admin command.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long: `Create an admin account. Self-registered accounts are guests; an admin
assigns staff and host roles through the API.

Example:
  floorctl create-admin --email manager@example.com --password 's3cret-pass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.Password) < 8 {
				return errors.New("--password must be at least 8 characters")
			}

			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			cfg.SeedOnStart = false

			app, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := database.CreateUser(cmd.Context(), app.DB, opts.Name, opts.Email, opts.Password, models.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "Floor Manager", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "login password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
