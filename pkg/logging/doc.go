// Package logging provides a thin structured-logging layer over log/slog.
//
// Every log call carries a subsystem tag ("Auth", "OAuth", "Server", ...)
// so that output from the different components can be filtered. The
// package is initialized once at startup via Init; the level is chosen by
// the CLI (--debug lowers it to DEBUG).
//
// Access tokens, proxy codes and code verifiers must never be passed to
// this package, not even at debug level.
package logging
