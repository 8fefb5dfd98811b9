package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hulugan-ph/hulugan/cmd/users"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hulugan",
	Short: "Hulugan weekly group-savings fund server",
	Long: `Hulugan tracks a shared weekly savings fund: member groups, their
weekly contributions, and how many weeks each has paid. It serves the fund
API, sends magic-link logins, and manages roles and the database schema.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Local development convenience; missing .env is not an error.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Debug)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
