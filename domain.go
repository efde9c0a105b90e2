package lexful

import (
	"context"
	"fmt"

	"github.com/asecurityteam/runhttp"

	"github.com/lexful/lexful/lexv2"
)

// Logger is an alias for the chosen project logging library
// which is, currently, logevent. All references in the project
// should be to this name rather than logevent directly.
type Logger = runhttp.Logger

// LogFn extracts a logger from the context.
type LogFn = runhttp.LogFn

// Stat is an alias for the chosen project metrics library
// which is, currently, xstats. All references in the project
// should be to this name rather than xstats directly.
type Stat = runhttp.Stat

// StatFn extracts a metrics client from the context.
type StatFn = runhttp.StatFn

// LoggerFromContext is the default LogFn implementation.
var LoggerFromContext LogFn = runhttp.LoggerFromContext

// StatFromContext is the default StatFn implementation.
var StatFromContext StatFn = runhttp.StatFromContext

// IntentHandler fulfills one intent. Handlers receive the parsed event,
// may mutate its session state, and return the next dialog response. A
// handler that cannot produce a response returns an error; the bot decides
// whether to surface it or answer with the configured error message.
type IntentHandler interface {
	Handle(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error)
}

// IntentFunc adapts an ordinary function to the IntentHandler interface.
type IntentFunc func(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error)

// Handle calls the wrapped function.
func (f IntentFunc) Handle(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	return f(ctx, req)
}

// URLParamFn should be accepted by HTTP handlers that need
// to interface with the mux in use in order to extract request
// parameters from the URL. This defines the contract between
// any given mux and a handler so that the two do not need to
// be coupled.
type URLParamFn func(ctx context.Context, name string) string

// Fetcher is a pluggable component that enables different
// strategies for resolving an intent name to its handler.
type Fetcher interface {
	// Fetch uses some implementation of a loading strategy to fetch the
	// IntentHandler with the given name. If a matching handler cannot be
	// found then this component must emit a NotFoundError.
	Fetch(ctx context.Context, name string) (IntentHandler, error)
}

// NotFoundError represents a failed lookup for an intent handler.
type NotFoundError struct {
	// Intent is the name used when looking for the handler.
	Intent string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("intent (%s) has no registered handler", e.Intent)
}
