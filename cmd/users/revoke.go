package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hulugan-ph/hulugan/cmd/cmdutil"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/repository"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove a user's role assignment",
	Long:  `Removes the role assigned to the user with the given email, demoting them to viewer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
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
		user, err := repository.NewBunUserRepository(bundle.DB).GetByEmail(ctx, emailFlag)
		if err != nil {
			if repository.IsNotFound(err) {
				return fmt.Errorf("no user with email %s", emailFlag)
			}
			return fmt.Errorf("look up user: %w", err)
		}

		if err := bundle.Service.RemoveRole(ctx, user.ID); err != nil {
			if repository.IsNotFound(err) {
				fmt.Printf("%s has no role assignment\n", user.Email)
				return nil
			}
			return fmt.Errorf("remove role: %w", err)
		}

		fmt.Printf("Revoked role from %s, now a viewer\n", user.Email)
		return nil
	},
}
