package oauth

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/onpaj/heblo-mcp/internal/config"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// defaultScope is recorded for an authorization request that carries no
// scope parameter.
const defaultScope = "claudeai"

// Endpoints serves the OAuth authorization-code proxy: /authorize,
// /callback and /token. Clients run a public PKCE flow against these
// endpoints while the proxy runs the confidential flow against the
// provider, so the client secret never leaves the server.
type Endpoints struct {
	clientID     string
	apiScope     string
	authorizeURL string
	store        *SessionStore
	exchanger    *TokenExchanger
}

// NewEndpoints wires the proxy endpoints to a session store and an
// upstream exchanger.
func NewEndpoints(cfg config.Config, store *SessionStore, exchanger *TokenExchanger) *Endpoints {
	return &Endpoints{
		clientID:     cfg.ClientID,
		apiScope:     cfg.APIScope,
		authorizeURL: cfg.AuthorizeURL(),
		store:        store,
		exchanger:    exchanger,
	}
}

// Register installs the proxy handlers on the mux.
func (e *Endpoints) Register(mux *http.ServeMux) {
	mux.HandleFunc("/authorize", e.handleAuthorize)
	mux.HandleFunc("/callback", e.handleCallback)
	mux.HandleFunc("/token", e.handleToken)
}

// handleAuthorize validates the client's PKCE authorization request,
// stores it keyed by state, and redirects the browser to the provider
// with the proxy's own callback substituted as redirect_uri.
func (e *Endpoints) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "Method not allowed")
		return
	}

	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")
	codeChallenge := q.Get("code_challenge")
	challengeMethod := q.Get("code_challenge_method")

	for name, value := range map[string]string{
		"client_id":             clientID,
		"redirect_uri":          redirectURI,
		"state":                 state,
		"code_challenge":        codeChallenge,
		"code_challenge_method": challengeMethod,
	} {
		if value == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Missing required parameter: "+name)
			return
		}
	}

	if clientID != e.clientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "Unknown client_id")
		return
	}
	if challengeMethod != "S256" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Unsupported code_challenge_method: "+challengeMethod)
		return
	}

	scope := q.Get("scope")
	if scope == "" {
		scope = defaultScope
	}

	e.store.StoreState(state, OAuthState{
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: challengeMethod,
		RedirectURI:         redirectURI,
		Scope:               scope,
	})

	// The provider redirects back to this server, not to the client.
	// The client's own redirect_uri is replayed from the stored state on
	// /callback.
	params := url.Values{
		"client_id":     {e.clientID},
		"response_type": {"code"},
		"redirect_uri":  {callbackURL(r)},
		"scope":         {e.apiScope},
		"state":         {state},
		"response_mode": {"query"},
	}

	logging.Debug("OAuth", "Redirecting authorization request to provider (state=%s)", state)
	http.Redirect(w, r, e.authorizeURL+"?"+params.Encode(), http.StatusFound)
}

// handleCallback receives the provider's redirect, redeems the provider
// code server-side, mints a proxy code bound to the original PKCE
// challenge, and sends the browser back to the client's redirect_uri.
func (e *Endpoints) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "Method not allowed")
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		logging.Warn("OAuth", "Provider returned error on callback: %s", errCode)
		writeOAuthError(w, http.StatusBadRequest, errCode, q.Get("error_description"))
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Missing code or state parameter")
		return
	}

	session, ok := e.store.ConsumeState(state)
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid or expired state parameter")
		return
	}

	accessToken, err := e.exchanger.Exchange(r.Context(), code, callbackURL(r))
	if err != nil {
		logging.Error("OAuth", err, "Token exchange with provider failed")
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "Token exchange failed: "+err.Error())
		return
	}

	proxyCode, err := e.store.CreateCode(accessToken, session.CodeChallenge)
	if err != nil {
		logging.Error("OAuth", err, "Failed to mint proxy authorization code")
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "Failed to create authorization code")
		return
	}

	redirect, err := url.Parse(session.RedirectURI)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Stored redirect_uri is not a valid URL")
		return
	}
	params := redirect.Query()
	params.Set("code", proxyCode)
	params.Set("state", state)
	redirect.RawQuery = params.Encode()

	logging.Debug("OAuth", "Callback complete, redirecting to client (state=%s)", state)
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// handleToken redeems a proxy code plus PKCE verifier for the upstream
// access token. Unknown code and verifier mismatch produce the same
// invalid_grant answer.
func (e *Endpoints) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Malformed form body")
		return
	}

	if grantType := r.PostFormValue("grant_type"); grantType != "authorization_code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "Only authorization_code grant is supported")
		return
	}

	code := r.PostFormValue("code")
	verifier := r.PostFormValue("code_verifier")
	clientID := r.PostFormValue("client_id")
	for name, value := range map[string]string{
		"code":          code,
		"code_verifier": verifier,
		"client_id":     clientID,
	} {
		if value == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Missing required parameter: "+name)
			return
		}
	}

	if clientID != e.clientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "Unknown client_id")
		return
	}

	accessToken, ok := e.store.ExchangeCode(code, verifier)
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid authorization code or code verifier")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

// callbackURL derives this server's externally visible /callback URL
// from the incoming request, honoring a proxy's X-Forwarded-Proto.
func callbackURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + "/callback"
}

// writeOAuthError sends a standard OAuth error body.
func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
