package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/onpaj/heblo-mcp/internal/auth"
	"github.com/onpaj/heblo-mcp/internal/oauth"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// RunSSE serves MCP over HTTP/SSE together with the health endpoint and
// the OAuth authorization proxy, until the context is canceled.
func (s *Server) RunSSE(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	sse := server.NewSSEServer(s.mcp,
		server.WithBaseURL(fmt.Sprintf("http://%s", addr)),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.Handle("/sse", sse)
	mux.Handle("/message", sse)

	store := oauth.NewSessionStore()
	exchanger := oauth.NewTokenExchanger(s.cfg, nil)
	oauth.NewEndpoints(s.cfg, store, exchanger).Register(mux)

	var handler http.Handler = mux
	if s.cfg.SSEAuthEnabled {
		validator := auth.NewValidator(s.cfg, nil)
		handler = auth.NewMiddleware(validator).Wrap(handler)
		logging.Info("Server", "Bearer authentication enabled for SSE transport")
	} else {
		logging.Warn("Server", "Bearer authentication DISABLED, SSE endpoints are unprotected")
	}
	handler = corsMiddleware(handler)
	handler = requestLogMiddleware(handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("Server", "Serving MCP over SSE on %s", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.Info("Server", "Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleHealth answers the unauthenticated health probe. Any other
// unmatched path lands here too and gets a 404.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"service":   "heblo-mcp",
		"version":   s.version,
		"transport": s.transport,
		"tools":     s.toolCount,
	})
}
