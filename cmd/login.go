package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onpaj/heblo-mcp/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the Heblo API using the device code flow",
	Long: `Authenticate interactively: the command prints a verification URL and
a one-time code, then waits while you approve the sign-in from any
browser. The resulting credential is cached locally and refreshed
silently on later runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cache := auth.NewTokenCache(cfg.TokenCachePath)
		authenticator := auth.NewDeviceAuthenticator(cfg, cache)

		if _, err := authenticator.Login(cmd.Context()); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Login successful. Credential cached at %s\n", cache.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached credential",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := auth.NewTokenCache(cfg.TokenCachePath).Clear(); err != nil {
			return fmt.Errorf("failed to remove cached credential: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Cached credential removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
