package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// TransportStdio serves the MCP protocol over stdin/stdout.
	TransportStdio = "stdio"
	// TransportSSE serves the MCP protocol over HTTP with SSE.
	TransportSSE = "sse"
	// TransportAuto selects a transport at startup (currently stdio).
	TransportAuto = "auto"
)

// envPrefix is prepended to the upper-snake-case key names when reading
// configuration from the environment (e.g. HEBLO_TENANT_ID).
const envPrefix = "HEBLO_"

// Config holds the runtime configuration for heblo-mcp.
//
// Values are resolved in three layers: built-in defaults, an optional
// YAML config file, and HEBLO_-prefixed environment variables. Later
// layers win.
type Config struct {
	// TenantID is the Azure AD tenant identifier.
	TenantID string `yaml:"tenantId"`

	// ClientID is the Azure AD application (client) identifier. It is
	// also the audience expected in inbound bearer tokens and the only
	// client_id the OAuth proxy accepts.
	ClientID string `yaml:"clientId"`

	// ClientSecret is the confidential client credential used by the
	// OAuth proxy to exchange authorization codes with Azure AD.
	// Required in SSE mode only; never used in stdio mode.
	ClientSecret string `yaml:"clientSecret"`

	// APIScope is the scope requested for Heblo API access.
	APIScope string `yaml:"apiScope"`

	// APIBaseURL is the base URL of the Heblo API.
	APIBaseURL string `yaml:"apiBaseUrl"`

	// OpenAPISpecURL is where the OpenAPI document is fetched from.
	OpenAPISpecURL string `yaml:"openapiSpecUrl"`

	// TokenCachePath is the file holding the serialized local credential
	// cache (stdio mode only).
	TokenCachePath string `yaml:"tokenCachePath"`

	// Transport is one of "stdio", "sse" or "auto".
	Transport string `yaml:"transport"`

	// SSEAuthEnabled controls bearer-token validation of inbound
	// requests in SSE mode.
	SSEAuthEnabled bool `yaml:"sseAuthEnabled"`

	// JWKSCacheTTLSeconds is how long fetched signing keys are cached.
	JWKSCacheTTLSeconds int `yaml:"jwksCacheTtlSeconds"`

	// Host and Port are the SSE listen address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns the built-in defaults, mirroring the production Heblo
// deployment.
func Default() Config {
	return Config{
		APIScope:            "api://8b34be89-cef4-445a-929a-bc1a21dce0cb/access_as_user",
		APIBaseURL:          "https://heblo.anela.cz",
		OpenAPISpecURL:      "https://heblo.stg.anela.cz/swagger/v1/swagger.json",
		Transport:           TransportAuto,
		SSEAuthEnabled:      true,
		JWKSCacheTTLSeconds: 3600,
		Host:                "0.0.0.0",
		Port:                8000,
	}
}

// DefaultConfigFilePath returns the path of the optional YAML config
// file (~/.config/heblo-mcp/config.yaml).
func DefaultConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "heblo-mcp", "config.yaml")
}

// DefaultTokenCachePath returns the default token cache file location
// (~/.config/heblo-mcp/token_cache.json).
func DefaultTokenCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "heblo-mcp", "token_cache.json"), nil
}

// Load resolves the configuration: defaults, then the YAML file at
// configPath (skipped when absent; pass "" for the default location),
// then environment variables.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath == "" {
		configPath = DefaultConfigFilePath()
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath) // #nosec G304 -- operator-provided path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	applyEnv(&cfg)

	if cfg.TokenCachePath == "" {
		path, err := DefaultTokenCachePath()
		if err != nil {
			return Config{}, err
		}
		cfg.TokenCachePath = path
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays HEBLO_-prefixed environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	setString("TENANT_ID", &cfg.TenantID)
	setString("CLIENT_ID", &cfg.ClientID)
	setString("CLIENT_SECRET", &cfg.ClientSecret)
	setString("API_SCOPE", &cfg.APIScope)
	setString("API_BASE_URL", &cfg.APIBaseURL)
	setString("OPENAPI_SPEC_URL", &cfg.OpenAPISpecURL)
	setString("TOKEN_CACHE_PATH", &cfg.TokenCachePath)
	setString("TRANSPORT", &cfg.Transport)
	setString("HOST", &cfg.Host)

	if v, ok := os.LookupEnv(envPrefix + "SSE_AUTH_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SSEAuthEnabled = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "JWKS_CACHE_TTL"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JWKSCacheTTLSeconds = n
		}
	}
	// PORT without prefix is honored for platform compatibility (Azure
	// Web App injects it), HEBLO_PORT wins if both are set.
	for _, key := range []string{"PORT", envPrefix + "PORT"} {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				cfg.Port = n
			}
		}
	}
}

// Validate checks that the required settings are present.
func (c Config) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant ID is required (set %sTENANT_ID)", envPrefix)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required (set %sCLIENT_ID)", envPrefix)
	}
	switch c.Transport {
	case TransportStdio, TransportSSE, TransportAuto:
	default:
		return fmt.Errorf("invalid transport %q (must be %s, %s or %s)",
			c.Transport, TransportStdio, TransportSSE, TransportAuto)
	}
	if c.JWKSCacheTTLSeconds <= 0 {
		return fmt.Errorf("JWKS cache TTL must be positive, got %d", c.JWKSCacheTTLSeconds)
	}
	return nil
}

// ResolveTransport maps the configured transport to a concrete one.
// Auto currently resolves to stdio: it is the safe choice when heblo-mcp
// is launched by an MCP host process.
func (c Config) ResolveTransport() string {
	if c.Transport == TransportSSE {
		return TransportSSE
	}
	return TransportStdio
}

// Authority returns the Azure AD authority base URL for the tenant.
func (c Config) Authority() string {
	return "https://login.microsoftonline.com/" + c.TenantID
}

// IssuerURL returns the expected "iss" claim value for v2.0 tokens.
func (c Config) IssuerURL() string {
	return c.Authority() + "/v2.0"
}

// JWKSURL returns the tenant's signing-key discovery endpoint.
func (c Config) JWKSURL() string {
	return c.Authority() + "/discovery/v2.0/keys"
}

// AuthorizeURL returns the tenant's OAuth authorization endpoint.
func (c Config) AuthorizeURL() string {
	return c.Authority() + "/oauth2/v2.0/authorize"
}

// TokenURL returns the tenant's OAuth token endpoint.
func (c Config) TokenURL() string {
	return c.Authority() + "/oauth2/v2.0/token"
}

// Redacted returns a copy safe for logging, with the client secret
// masked.
func (c Config) Redacted() Config {
	if c.ClientSecret != "" {
		c.ClientSecret = strings.Repeat("*", 8)
	}
	return c
}
