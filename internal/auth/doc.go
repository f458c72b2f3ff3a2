// Package auth implements both halves of heblo-mcp authentication.
//
// Outbound (toward the Heblo API): in stdio mode DeviceAuthenticator
// acquires tokens via the Azure AD device-code flow, caches them on
// disk through TokenCache, and DeviceTokenTransport injects them into
// API requests with a single retry on 401. In SSE mode
// UserTokenTransport forwards the validated inbound user's own token
// instead.
//
// Inbound (from MCP clients in SSE mode): Validator verifies bearer
// tokens against the tenant's JWKS (fetched and cached by JWKSCache)
// and Middleware turns validation failures into 401 responses, tagging
// successful requests with a UserContext.
package auth
