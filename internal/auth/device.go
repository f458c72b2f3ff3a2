package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/onpaj/heblo-mcp/internal/config"
	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// DeviceAuthenticator drives the Azure AD device-code flow and serves
// access tokens from the local credential cache, refreshing silently
// when possible.
type DeviceAuthenticator struct {
	oauth *oauth2.Config
	cache *TokenCache

	// out receives the user-facing device-code banner. Defaults to
	// stderr so stdio MCP transport on stdout stays clean.
	out io.Writer
}

// NewDeviceAuthenticator creates an authenticator for the configured
// tenant, client and scope. offline_access is requested alongside the
// API scope so the provider issues a refresh token.
func NewDeviceAuthenticator(cfg config.Config, cache *TokenCache) *DeviceAuthenticator {
	return &DeviceAuthenticator{
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: microsoft.AzureADEndpoint(cfg.TenantID),
			Scopes:   []string{cfg.APIScope, "offline_access"},
		},
		cache: cache,
		out:   os.Stderr,
	}
}

// SetOutput redirects the device-code banner, used by tests.
func (a *DeviceAuthenticator) SetOutput(w io.Writer) {
	a.out = w
}

// Login performs the interactive device-code flow: it obtains a user
// code, prints sign-in instructions, and blocks until the user approves
// the request in a browser (or the flow times out or is denied). The
// resulting credential is persisted to the token cache.
func (a *DeviceAuthenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	flow, err := a.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, &FlowInitiationError{Description: providerErrorDescription(err), Err: err}
	}
	if flow.UserCode == "" {
		return nil, &FlowInitiationError{Description: "provider response did not include a user code"}
	}

	a.printInstructions(flow)

	token, err := a.oauth.DeviceAccessToken(ctx, flow)
	if err != nil {
		return nil, &AuthenticationError{Description: providerErrorDescription(err), Err: err}
	}

	if err := a.cache.Save(NewCachedCredential(token, accountHint(token))); err != nil {
		return nil, fmt.Errorf("authenticated but failed to persist credential: %w", err)
	}

	logging.Info("Auth", "Device code authentication completed")
	return token, nil
}

// Token returns a valid access token without user interaction. It
// serves the cached access token while valid and otherwise refreshes it
// with the cached refresh token, re-persisting the rotated credential.
// When neither is possible the caller gets a *NoCachedTokenError
// telling the user to run the interactive login.
func (a *DeviceAuthenticator) Token(ctx context.Context) (string, error) {
	cred := a.cache.Load()
	if cred == nil {
		return "", &NoCachedTokenError{}
	}

	// oauth2.TokenSource returns the cached token while valid and
	// otherwise refreshes it using the refresh token.
	token, err := a.oauth.TokenSource(ctx, cred.ToOAuth2Token()).Token()
	if err != nil {
		return "", &NoCachedTokenError{Err: err}
	}

	// Silent renewal may rotate both tokens; Save skips the write when
	// nothing changed.
	refreshed := NewCachedCredential(token, cred.Account)
	if err := a.cache.Save(refreshed); err != nil {
		logging.Warn("Auth", "Failed to persist refreshed credential: %v", err)
	}

	return token.AccessToken, nil
}

// printInstructions renders the sign-in banner in the style users see
// from the provider's own tooling.
func (a *DeviceAuthenticator) printInstructions(flow *oauth2.DeviceAuthResponse) {
	divider := strings.Repeat("=", 70)

	fmt.Fprintf(a.out, "\n%s\n", divider)
	fmt.Fprintln(a.out, "DEVICE CODE AUTHENTICATION")
	fmt.Fprintln(a.out, divider)
	fmt.Fprintf(a.out, "\nTo sign in, use a web browser to open the page %s and enter the code %s to authenticate.\n\n",
		flow.VerificationURI, flow.UserCode)
	fmt.Fprintf(a.out, "%s\n\n", divider)
}

// providerErrorDescription extracts the identity provider's
// error_description from an oauth2 retrieval failure.
func providerErrorDescription(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// accountHint pulls a human-readable account identifier out of the ID
// token the provider returns alongside the access token. The ID token
// is our own login result, so its claims are read without verification.
func accountHint(token *oauth2.Token) string {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return ""
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ""
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return claims.Email
}
