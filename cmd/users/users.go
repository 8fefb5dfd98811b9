package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage hulugan users and roles",
	Long:  `Commands for provisioning users and managing role assignments directly from the server.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name of the user")
	createCmd.Flags().StringVar(&roleFlag, "role", "", "Optional role to assign (admin or viewer)")

	grantCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	grantCmd.Flags().StringVar(&roleFlag, "role", "", "Role to assign (admin or viewer)")

	revokeCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(grantCmd)
	UsersCmd.AddCommand(revokeCmd)
}
