// Package oauth implements the authorization-code proxy that lets
// public PKCE clients obtain tokens for the Heblo API without holding
// the confidential client secret. SessionStore carries the short-lived
// state between the three endpoint hits; TokenExchanger talks to the
// provider's token endpoint.
package oauth
