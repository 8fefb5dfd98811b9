package users

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/spf13/cobra"

	"github.com/hulugan-ph/hulugan/cmd/cmdutil"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/db/models"
)

var (
	emailFlag string
	nameFlag  string
	roleFlag  string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a user before their first login",
	Long: `Creates a user record for an email address so a role can be assigned
before the user ever opens a magic link. Logging in with the same address
later reuses this record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}
		if roleFlag != "" && roleFlag != models.RoleAdmin && roleFlag != models.RoleViewer {
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
		user, err := bundle.Service.GetOrCreateUser(ctx, emailFlag, nameFlag)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		if roleFlag != "" {
			if err := bundle.Service.AssignRole(ctx, user.ID, roleFlag, "cli"); err != nil {
				return fmt.Errorf("assign role: %w", err)
			}
		}

		fmt.Printf("User %s (%s) ready", user.Email, user.ID)
		if roleFlag != "" {
			fmt.Printf(" with role %s", roleFlag)
		}
		fmt.Println()
		return nil
	},
}
