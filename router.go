package lexful

import (
	"net/http"

	"github.com/asecurityteam/runhttp"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// RouterConfig is used to alter the behavior of the default router
// and the HTTP endpoint handlers that it manages.
type RouterConfig struct {
	// HealthCheck defines the route on which the service will respond
	// with automatic 200s. This is here to integrate with systems that
	// poll for liveliness. The default value is /healthcheck
	HealthCheck string

	// Bot services the /bot/invocations route. There is no default for
	// this value.
	Bot lambda.Handler

	// Fetcher resolves intent names for the per-intent invocation route.
	// There is no default for this value.
	Fetcher Fetcher

	// Sessions backs the dev console. The default is a fresh in-memory
	// store.
	Sessions *SessionStore

	// LogFn is used to extract the request logger from the request
	// context. The default value is the runhttp implementation.
	LogFn LogFn
	// StatFn is used to extract the request stat client from the
	// request context. The default value is the runhttp implementation.
	StatFn StatFn
	// URLParamFn is used to extract URL parameters from the request.
	// The default value is chi.URLParamFromCtx to match the usage of chi
	// as a mux in the default case.
	URLParamFn URLParamFn
}

func applyDefaults(conf *RouterConfig) *RouterConfig {
	if conf.HealthCheck == "" {
		conf.HealthCheck = "/healthcheck"
	}
	if conf.Sessions == nil {
		conf.Sessions = NewSessionStore()
	}
	if conf.LogFn == nil {
		conf.LogFn = runhttp.LoggerFromContext
	}
	if conf.StatFn == nil {
		conf.StatFn = runhttp.StatFromContext
	}
	if conf.URLParamFn == nil {
		conf.URLParamFn = chi.URLParamFromCtx
	}
	return conf
}

// NewRouter generates a mux with the local bot API bound: the Invoke
// style endpoint for whole-turn processing, a per-intent endpoint for
// exercising one handler in isolation, and the WebSocket dev console.
// This version returns a mux from the chi project as a convenience for
// cases where custom middleware or additional routes need to be
// configured.
func NewRouter(conf *RouterConfig) *chi.Mux {
	conf = applyDefaults(conf)
	router := chi.NewMux()
	router.Use(middleware.Heartbeat(conf.HealthCheck))

	invokeHandler := &Invoke{
		Bot:    conf.Bot,
		LogFn:  conf.LogFn,
		StatFn: conf.StatFn,
	}
	intentHandler := &IntentInvoke{
		Fetcher:    conf.Fetcher,
		LogFn:      conf.LogFn,
		StatFn:     conf.StatFn,
		URLParamFn: conf.URLParamFn,
	}
	console := &Console{
		Bot:      conf.Bot,
		LogFn:    conf.LogFn,
		Sessions: conf.Sessions,
		Upgrader: websocket.Upgrader{},
	}

	router.Method(http.MethodPost, "/bot/invocations", invokeHandler)
	router.Method(http.MethodPost, "/bot/intents/{intentName}/invocations", intentHandler)
	router.Method(http.MethodGet, "/bot/console", console)
	return router
}
