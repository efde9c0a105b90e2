package lexful

import "runtime"

// Log events emitted by the bot while processing a turn. Fields follow the
// logevent struct tag convention so they render as structured output.

type requestReceived struct {
	Message   string `logevent:"message,default=lex-request-received"`
	SessionID string `logevent:"session_id"`
	Intent    string `logevent:"intent"`
	Source    string `logevent:"invocation_source"`
	Locale    string `logevent:"locale"`
}

type intentDispatched struct {
	Message string `logevent:"message,default=intent-dispatched"`
	Intent  string `logevent:"intent"`
}

type stageFailed struct {
	Message string `logevent:"message,default=handler-stage-failed"`
	Intent  string `logevent:"intent"`
	Reason  string `logevent:"reason"`
	Stack   string `logevent:"stack"`
}

type errorHandled struct {
	Message string `logevent:"message,default=error-response-returned"`
	Reason  string `logevent:"reason"`
	Stack   string `logevent:"stack"`
}

type callbackInvoked struct {
	Message string `logevent:"message,default=callback-invoked"`
	Handler string `logevent:"handler"`
}

type disambiguationTriggered struct {
	Message    string `logevent:"message,default=disambiguation-triggered"`
	Reason     string `logevent:"reason"`
	Candidates int    `logevent:"candidates"`
}

type disambiguationResolved struct {
	Message string `logevent:"message,default=disambiguation-resolved"`
	Intent  string `logevent:"intent"`
}

type unknownChoice struct {
	Message string `logevent:"message,default=unknown-option-reply"`
	Intent  string `logevent:"intent"`
	Options int    `logevent:"options"`
}

type localeNotInitialized struct {
	Message string `logevent:"message,default=locale-not-initialized"`
	Locale  string `logevent:"locale"`
	Reason  string `logevent:"reason"`
}

type responseRendered struct {
	Message  string `logevent:"message,default=response-rendered"`
	Channel  string `logevent:"channel"`
	Messages int    `logevent:"messages"`
}

type consoleSessionStarted struct {
	Message   string `logevent:"message,default=console-session-started"`
	SessionID string `logevent:"session_id"`
}

type consoleSessionEnded struct {
	Message   string `logevent:"message,default=console-session-ended"`
	SessionID string `logevent:"session_id"`
	Turns     int    `logevent:"turns"`
}

// stack captures the current goroutine's stack for error events.
func stack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
