package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hulugan-ph/hulugan/cmd/cmdutil"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/db/models"
)

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Assign a role to a user",
	Long: `Assigns a role to the user with the given email, replacing any
existing assignment. The user is provisioned if they have not logged in yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if roleFlag != models.RoleAdmin && roleFlag != models.RoleViewer {
			return fmt.Errorf("unknown role %q (expected %s or %s)", roleFlag, models.RoleAdmin, models.RoleViewer)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		bundle, err := cmdutil.NewIAMServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()
		user, err := bundle.Service.GetOrCreateUser(ctx, emailFlag, "")
		if err != nil {
			return fmt.Errorf("look up user: %w", err)
		}

		if err := bundle.Service.AssignRole(ctx, user.ID, roleFlag, "cli"); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}

		fmt.Printf("Granted %s to %s\n", roleFlag, user.Email)
		return nil
	},
}
