package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onpaj/heblo-mcp/internal/auth"
	"github.com/onpaj/heblo-mcp/internal/config"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// Exit codes.
const (
	exitOK = iota
	exitError
	_
	exitAuthFailed
)

var (
	version = "dev"

	configPath   string
	logLevelName string
)

var rootCmd = &cobra.Command{
	Use:   "heblo-mcp",
	Short: "MCP server exposing the Heblo ERP API to AI assistants",
	Long: `heblo-mcp bridges the Heblo ERP REST API to AI assistants over the
Model Context Protocol. It exposes a curated set of API endpoints as
tools, over stdio for local clients or over SSE for remote ones.

Run 'heblo-mcp login' once to authenticate before using stdio mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// SetVersion records the build version injected by the linker.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelName, "log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig initializes logging and loads the effective configuration.
// Logging always targets stderr; stdout may carry the MCP stream.
func loadConfig() (config.Config, error) {
	level, err := logging.ParseLevel(logLevelName)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(level, os.Stderr)
	return config.Load(configPath)
}

// Execute runs the CLI and exits with a code describing the failure
// class: 0 on success, 3 when authentication is required or failed, 1
// for everything else.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var noToken *auth.NoCachedTokenError
		var authErr *auth.AuthenticationError
		var flowErr *auth.FlowInitiationError
		if errors.As(err, &noToken) || errors.As(err, &authErr) || errors.As(err, &flowErr) {
			os.Exit(exitAuthFailed)
		}
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}
