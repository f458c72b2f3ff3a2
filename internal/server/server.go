package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/onpaj/heblo-mcp/internal/auth"
	"github.com/onpaj/heblo-mcp/internal/config"
	"github.com/onpaj/heblo-mcp/internal/openapi"
	"github.com/onpaj/heblo-mcp/internal/tools"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// apiTimeout bounds a single outbound Heblo API call.
const apiTimeout = 60 * time.Second

// Server is one configured heblo-mcp instance. Callers construct as
// many as they need; there is no shared global state.
type Server struct {
	cfg       config.Config
	version   string
	transport string

	mcp       *server.MCPServer
	toolCount int
}

// New builds a server for the resolved transport: it loads and patches
// the upstream OpenAPI document and registers the curated tools, backed
// by an API client whose authentication matches the transport (local
// device-flow credentials for stdio, the inbound user's token for SSE).
func New(ctx context.Context, cfg config.Config, version string) (*Server, error) {
	transport := cfg.ResolveTransport()

	mcpServer := server.NewMCPServer(
		"heblo-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	doc, err := openapi.NewLoader(cfg.OpenAPISpecURL, nil).Load(ctx, tools.PatchMap())
	if err != nil {
		return nil, fmt.Errorf("failed to load Heblo OpenAPI document: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		version:   version,
		transport: transport,
		mcp:       mcpServer,
	}
	s.toolCount = tools.NewBuilder(doc, cfg.APIBaseURL, s.apiClient(transport)).Register(mcpServer)

	logging.Info("Server", "Initialized %s transport with %d tools", transport, s.toolCount)
	return s, nil
}

// apiClient builds the outbound Heblo API client for the transport.
func (s *Server) apiClient(transport string) *http.Client {
	if transport == config.TransportSSE {
		return &http.Client{
			Transport: &auth.UserTokenTransport{},
			Timeout:   apiTimeout,
		}
	}

	cache := auth.NewTokenCache(s.cfg.TokenCachePath)
	return &http.Client{
		Transport: &auth.DeviceTokenTransport{
			Provider: auth.NewDeviceAuthenticator(s.cfg, cache),
		},
		Timeout: apiTimeout,
	}
}

// Run serves the resolved transport until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.transport == config.TransportSSE {
		return s.RunSSE(ctx)
	}
	return s.RunStdio(ctx)
}

// RunStdio serves MCP over stdin/stdout. All logging goes to stderr so
// the protocol stream on stdout stays clean.
func (s *Server) RunStdio(ctx context.Context) error {
	logging.Info("Server", "Serving MCP on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}
