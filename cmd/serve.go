package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onpaj/heblo-mcp/internal/server"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the MCP server on the configured transport.

stdio serves a single local client over stdin/stdout, authenticating
API calls with the locally cached device-flow credential. sse serves
remote clients over HTTP and forwards each validated user's own token
to the API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport to serve (stdio, sse, auto)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind address for the sse transport")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port for the sse transport")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveTransport != "" {
		cfg.Transport = serveTransport
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, version)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
