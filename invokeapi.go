package lexful

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/lexful/lexful/channels"
	"github.com/lexful/lexful/lexv2"
)

const (
	invocationTypeHeader          = "X-Amz-Invocation-Type"
	invocationTypeRequestResponse = "RequestResponse"
	invocationTypeEvent           = "Event"
	invocationTypeDryRun          = "DryRun"
	invocationVersionHeader       = "X-Amz-Executed-Version"
	invocationErrorHeader         = "X-Amz-Function-Error"
	invocationErrorTypeHandled    = "Handled"
	invocationErrorTypeUnhandled  = "Unhandled"

	statAPIInvoke = "api.invoke"
)

// bgContext is used to detach the *http.Request context from the http.Handler
// lifecycle. Typically, the request context is canceled when the handler returns.
// This is problematic when using the request context to share request scoped
// elements, such as the logger or stat client, with background tasks that will
// execute after the handler returns. This resolves that issue by keeping a
// reference to the request context and using it to lookup values but replacing
// all other context.Context methods with the context.Background() implementation.
// The result is a valid context.Context that will not expire when the source
// http.Handler returns but will maintain all context values.
type bgContext struct {
	context.Context
	Values context.Context
}

func (c *bgContext) Value(key interface{}) interface{} {
	return c.Values.Value(key)
}

// lambdaError implements the common Lambda error response
// JSON object that is included as the response body for
// exception cases.
type lambdaError struct {
	Message    string   `json:"errorMessage"`
	Type       string   `json:"errorType"`
	StackTrace []string `json:"stackTrace"`
}

// Invoke exposes the bot over HTTP in the shape of the AWS Lambda Invoke
// API so local tools can drive it exactly like the deployed function.
// https://docs.aws.amazon.com/lambda/latest/dg/API_Invoke.html
//
// While the intent is to make this endpoint as similar to the Invoke
// API as possible, there are several features that are not supported:
//
//   - The "Tail" option for the LogType header does not cause the
//     response to include partial logs.
//
//   - The "Qualifier" parameter is currently ignored and the reported
//     execution version is always "latest".
type Invoke struct {
	LogFn  LogFn
	StatFn StatFn
	Bot    lambda.Handler
}

func (h *Invoke) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serveInvocation(w, r, h.Bot, h.LogFn, h.StatFn)
}

// IntentInvoke dispatches one intent handler directly, bypassing the
// bot's stage chain. The handler still sees a fully parsed event and its
// response is still rendered for the requesting channel, which makes the
// endpoint useful for exercising a single intent in isolation.
type IntentInvoke struct {
	LogFn      LogFn
	StatFn     StatFn
	URLParamFn URLParamFn
	Fetcher    Fetcher
	// Channel names the formatting channel used when the event does not
	// identify its platform. Empty means the Lex channel.
	Channel string
}

func (h *IntentInvoke) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := h.URLParamFn(r.Context(), "intentName")
	handler, errFetch := h.Fetcher.Fetch(r.Context(), name)
	switch errFetch.(type) {
	case nil:
		break
	case NotFoundError:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(responseFromError(errFetch))
		return
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(responseFromError(errFetch))
		return
	}
	channel := h.Channel
	if channel == "" {
		channel = channels.NameLex
	}
	fn := intentInvoker{handler: handler, channel: channel}
	serveInvocation(w, r, fn, h.LogFn, h.StatFn)
}

// intentInvoker adapts a single IntentHandler to the lambda.Handler
// contract shared by the HTTP surface and the native Lambda runtime.
type intentInvoker struct {
	handler IntentHandler
	channel string
}

func (i intentInvoker) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := lexv2.ParseRequest(payload)
	if err != nil {
		return nil, err
	}
	resp, err := i.handler.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	channel := i.channel
	if name := channels.ChannelName(req); name != "" {
		channel = name
	}
	formatted, err := channels.FormatForChannel(resp, channel)
	if err != nil {
		return nil, err
	}
	return json.Marshal(formatted)
}

func serveInvocation(w http.ResponseWriter, r *http.Request, fn lambda.Handler, logFn LogFn, statFn StatFn) {
	fnType := r.Header.Get(invocationTypeHeader)
	if fnType == "" {
		fnType = invocationTypeRequestResponse // This is the default value in AWS.
	}
	b, errRead := io.ReadAll(r.Body)
	if errRead != nil {
		w.WriteHeader(http.StatusBadRequest) // Matches JSON parsing errors for the body
		_ = json.NewEncoder(w).Encode(responseFromError(errRead))
		return
	}
	statFn(r.Context()).Count(statAPIInvoke, 1, "type:"+fnType)
	w.Header().Set(invocationVersionHeader, "latest")
	switch fnType {
	case invocationTypeDryRun:
		w.WriteHeader(http.StatusNoContent)
	case invocationTypeEvent:
		ctx := &bgContext{Context: context.Background(), Values: r.Context()}
		go func() {
			if _, err := fn.Invoke(ctx, b); err != nil {
				logFn(ctx).Error(errorHandled{Reason: err.Error(), Stack: stack()})
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	case invocationTypeRequestResponse:
		rb, errInvoke := fn.Invoke(r.Context(), b)
		statusCode := statusFromError(errInvoke)
		if statusCode > 299 {
			w.Header().Set(invocationErrorHeader, invocationErrorTypeHandled)
		}
		if statusCode > 499 {
			w.Header().Set(invocationErrorHeader, invocationErrorTypeUnhandled)
		}
		w.WriteHeader(statusCode)
		if errInvoke != nil {
			rb, _ = json.Marshal(responseFromError(errInvoke))
		}
		if len(rb) > 0 {
			_, _ = w.Write(rb)
		}
	default:
		w.WriteHeader(http.StatusBadRequest) // Matches the InvalidParameterValueException code
		_ = json.NewEncoder(w).Encode(lambdaError{
			Message:    fmt.Sprintf("InvocationType %s not valid", fnType),
			Type:       "InvalidParameterValueException",
			StackTrace: errResponseStackTrace,
		})
	}
}

// errResponseStackTrace is used to populate the stackTrace attribute of a
// Lambda error. We don't extract an actual stack trace for API responses so
// we reuse this element each time.
var errResponseStackTrace = []string{}

func responseFromError(err error) lambdaError {
	errType := reflect.TypeOf(err)
	errTypeName := errType.Name()
	if errType.Kind() == reflect.Ptr {
		errTypeName = errType.Elem().Name()
	}
	return lambdaError{
		Message:    err.Error(),
		Type:       errTypeName,
		StackTrace: errResponseStackTrace,
	}
}

// statusFromError maps invocation failures onto the status codes the real
// Invoke API uses: malformed payloads are the caller's fault, everything
// else is a 500. Decode errors may arrive wrapped, hence errors.As.
func statusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var (
		syntaxErr    *json.SyntaxError
		typeErr      *json.UnmarshalTypeError
		unmarshalErr *json.InvalidUnmarshalError
	)
	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.As(err, &unmarshalErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
