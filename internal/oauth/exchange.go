package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onpaj/heblo-mcp/internal/config"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// TokenExchanger performs the confidential server-to-server leg of the
// proxied authorization code flow: redeeming the provider's code for an
// access token using the registered client secret.
type TokenExchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client
}

// NewTokenExchanger creates an exchanger for the configured tenant.
// Pass a nil client to use a default with a sane timeout.
func NewTokenExchanger(cfg config.Config, client *http.Client) *TokenExchanger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenExchanger{
		tokenURL:     cfg.TokenURL(),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.APIScope,
		client:       client,
	}
}

// Exchange redeems an authorization code at the provider's token
// endpoint. redirectURI must match the one sent on /authorize.
func (e *TokenExchanger) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	if e.clientSecret == "" {
		return "", fmt.Errorf("client secret is not configured; cannot redeem authorization code")
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {e.clientID},
		"client_secret": {e.clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"scope":         {e.scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Error != "" {
			return "", fmt.Errorf("provider rejected code exchange (%s): %s", oauthErr.Error, oauthErr.ErrorDescription)
		}
		return "", fmt.Errorf("provider rejected code exchange with status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	logging.Debug("OAuth", "Redeemed authorization code at provider token endpoint")
	return token.AccessToken, nil
}
