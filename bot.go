package lexful

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asecurityteam/runhttp"

	"github.com/lexful/lexful/channels"
	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/disambiguation"
	"github.com/lexful/lexful/lexv2"
	"github.com/lexful/lexful/messages"
)

// Exit-context stamping applied on routed turns. Every flow keeps a path
// to the exit flow open; the exit flow itself is excluded so finishing it
// does not re-arm the context.
const (
	defaultExitContextName    = "transition_to_exit"
	defaultExitFeedbackMarker = "Common_Exit_Feedback"

	exitContextSeconds = 900
	exitContextTurns   = 20
)

const (
	defaultErrorKey  = "errors.generic"
	defaultErrorText = "Sorry, something went wrong. Please try again."
)

// Stat names emitted by the bot.
const (
	statInvoke         = "bot.invoke.timing"
	statInvokeError    = "bot.invoke.error"
	statCallback       = "bot.callback"
	statDisambiguation = "bot.disambiguation"
)

// Config alters the behavior of the Bot.
type Config struct {
	// AutoHandleErrors converts processing failures into a graceful close
	// response instead of failing the invocation.
	AutoHandleErrors bool
	// AutoInitializeMessages sets the message locale from each request
	// before dispatch.
	AutoInitializeMessages bool
	// ErrorMessage overrides the text of the graceful error response. It
	// is resolved as a message key first and used verbatim when no such
	// key exists.
	ErrorMessage string
	// DefaultChannel formats responses when the event does not identify
	// its platform. Defaults to "lex".
	DefaultChannel string
	// EnableDisambiguation turns on clarification questions for
	// low-confidence turns.
	EnableDisambiguation bool
	// Disambiguation tunes the thresholds when disambiguation is on.
	Disambiguation disambiguation.Config
	// ExitContextEnabled controls stamping of the exit transition context.
	ExitContextEnabled bool
	// ExitContextName is the active context stamped on routed turns.
	ExitContextName string
	// ExitFeedbackMarker suppresses the stamp for intents whose name
	// contains it.
	ExitFeedbackMarker string

	// LogFn extracts the request logger from the context. The default
	// value is the runhttp implementation.
	LogFn LogFn
	// StatFn extracts the request stat client from the context. The
	// default value is the runhttp implementation.
	StatFn StatFn
}

// DefaultConfig returns the bot defaults: errors handled, messages
// auto-initialized, exit context stamped, disambiguation off.
func DefaultConfig() Config {
	return Config{
		AutoHandleErrors:       true,
		AutoInitializeMessages: true,
		DefaultChannel:         channels.NameLex,
		ExitContextEnabled:     true,
		ExitContextName:        defaultExitContextName,
		ExitFeedbackMarker:     defaultExitFeedbackMarker,
	}
}

// Bot routes Lex code-hook events through a chain of stages, runs the
// matching intent handler, and renders the final response for the
// requesting channel. It implements lambda.Handler so it can be handed
// directly to the Lambda runtime.
type Bot struct {
	fetcher   Fetcher
	conf      Config
	analyzer  *disambiguation.Analyzer
	clarifier *disambiguation.Handler
}

// NewBot builds a bot around the given handler source. Zero-valued config
// fields fall back to defaults.
func NewBot(f Fetcher, conf Config) *Bot {
	if conf.DefaultChannel == "" {
		conf.DefaultChannel = channels.NameLex
	}
	if conf.ExitContextName == "" {
		conf.ExitContextName = defaultExitContextName
	}
	if conf.ExitFeedbackMarker == "" {
		conf.ExitFeedbackMarker = defaultExitFeedbackMarker
	}
	if conf.LogFn == nil {
		conf.LogFn = runhttp.LoggerFromContext
	}
	if conf.StatFn == nil {
		conf.StatFn = runhttp.StatFromContext
	}
	b := &Bot{fetcher: f, conf: conf}
	if conf.EnableDisambiguation {
		b.analyzer = disambiguation.NewAnalyzer(conf.Disambiguation)
		b.clarifier = disambiguation.NewHandler(conf.Disambiguation)
	}
	return b
}

// Fetcher exposes the handler source the bot dispatches through.
func (b *Bot) Fetcher() Fetcher {
	return b.fetcher
}

// WithFetcher returns a bot with the same configuration that dispatches
// through f. The receiver is not modified.
func (b *Bot) WithFetcher(f Fetcher) *Bot {
	return NewBot(f, b.conf)
}

// Invoke processes one raw code-hook event and returns the formatted
// response payload. With AutoHandleErrors set, any failure is converted
// into a graceful close response so the conversation never surfaces a
// raw Lambda error to the user.
func (b *Bot) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	out, err := b.process(ctx, payload)
	stat := b.conf.StatFn(ctx)
	stat.Timing(statInvoke, time.Since(start))
	if err == nil {
		return out, nil
	}
	stat.Count(statInvokeError, 1)
	if !b.conf.AutoHandleErrors {
		return nil, err
	}
	b.conf.LogFn(ctx).Error(errorHandled{Reason: err.Error(), Stack: stack()})
	req, parseErr := lexv2.ParseRequest(payload)
	if parseErr != nil {
		return b.minimalErrorResponse(), nil
	}
	return b.renderError(req), nil
}

func (b *Bot) process(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := lexv2.ParseRequest(payload)
	if err != nil {
		return nil, err
	}
	logger := b.conf.LogFn(ctx)

	if b.conf.AutoInitializeMessages {
		if err := messages.SetLocale(req.Bot.LocaleID); err != nil {
			logger.Debug(localeNotInitialized{Locale: req.Bot.LocaleID, Reason: err.Error()})
		}
	}

	logger.Info(requestReceived{
		SessionID: req.SessionID,
		Intent:    req.SessionState.Intent.Name,
		Source:    req.InvocationSource,
		Locale:    req.Bot.LocaleID,
	})

	resp, err := b.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	// A handler can request a follow-up by naming it in the callback
	// request attribute. The follow-up sees the updated session and its
	// messages are appended after the first handler's.
	if name, ok := dialog.TakeCallback(resp); ok {
		logger.Info(callbackInvoked{Handler: name})
		b.conf.StatFn(ctx).Count(statCallback, 1)

		combined := resp.Messages
		req.SessionState = resp.SessionState
		req.RequestAttributes = resp.RequestAttributes
		cb, err := b.fetcher.Fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		cbResp, err := cb.Handle(ctx, req)
		if err != nil {
			return nil, err
		}
		resp = cbResp
		resp.Messages = append(append(lexv2.Messages{}, combined...), cbResp.Messages...)
	}

	channel := b.channelFor(req)
	formatted, err := channels.FormatForChannel(resp, channel)
	if err != nil {
		return nil, err
	}
	logger.Debug(responseRendered{Channel: channel, Messages: len(formatted.Messages)})
	return json.Marshal(formatted)
}

// dispatch runs the stage chain until one produces a response. A stage
// failure is logged and the next stage gets its chance, except for
// NotFoundError which no later stage can recover from.
func (b *Bot) dispatch(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	logger := b.conf.LogFn(ctx)
	stages := make([]func(context.Context, *lexv2.Request) (*lexv2.Response, error), 0, 2)
	if b.clarifier != nil {
		stages = append(stages, b.disambiguationStage)
	}
	stages = append(stages, b.fulfillmentStage)

	for _, stage := range stages {
		resp, err := stage(ctx, req)
		if err != nil {
			var nf NotFoundError
			if errors.As(err, &nf) {
				return nil, err
			}
			logger.Error(stageFailed{
				Intent: req.SessionState.Intent.Name,
				Reason: err.Error(),
				Stack:  stack(),
			})
			continue
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, fmt.Errorf("no handler produced a response for intent %s", req.SessionState.Intent.Name)
}

// disambiguationStage resolves replies to an open clarification question
// and asks one when the current turn's interpretations are too ambiguous
// to act on. Returning nil passes the turn to regular fulfillment.
func (b *Bot) disambiguationStage(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	logger := b.conf.LogFn(ctx)
	if name, ok := b.clarifier.ApplySelection(req); ok {
		logger.Info(disambiguationResolved{Intent: name})
		return nil, nil
	}
	res := b.analyzer.Analyze(req)
	if !res.ShouldDisambiguate || len(res.Candidates) == 0 {
		return nil, nil
	}
	logger.Info(disambiguationTriggered{Reason: res.Reason, Candidates: len(res.Candidates)})
	b.conf.StatFn(ctx).Count(statDisambiguation, 1, "reason:"+res.Reason)
	return b.clarifier.Disambiguate(req, res.Candidates), nil
}

// fulfillmentStage records the routed intent, stamps the exit context,
// intercepts replies that match none of the previously offered options,
// and finally dispatches to the registered handler.
func (b *Bot) fulfillmentStage(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	intent := dialog.GetIntent(req)
	dialog.SetAttr(req, dialog.IntentAttribute, intent.Name)

	if b.conf.ExitContextEnabled && !strings.Contains(intent.Name, b.conf.ExitFeedbackMarker) {
		b.stampExitContext(req)
	}

	if dialog.AnyUnknownSlotChoice(req) {
		b.conf.LogFn(ctx).Info(unknownChoice{
			Intent:  intent.Name,
			Options: len(dialog.ProvidedOptions(req)),
		})
		return dialog.HandleAnyUnknownSlotChoice(req), nil
	}

	handler, err := b.fetcher.Fetch(ctx, intent.Name)
	if err != nil {
		return nil, err
	}
	b.conf.LogFn(ctx).Debug(intentDispatched{Intent: intent.Name})
	return handler.Handle(ctx, req)
}

// stampExitContext replaces the active contexts with the exit transition
// context.
func (b *Bot) stampExitContext(req *lexv2.Request) {
	req.SessionState.ActiveContexts = []lexv2.ActiveContext{{
		Name:              b.conf.ExitContextName,
		ContextAttributes: map[string]string{},
		TimeToLive: lexv2.TimeToLive{
			TimeToLiveInSeconds: exitContextSeconds,
			TurnsToLive:         exitContextTurns,
		},
	}}
}

func (b *Bot) channelFor(req *lexv2.Request) string {
	if name := channels.ChannelName(req); name != "" {
		return name
	}
	return b.conf.DefaultChannel
}

// renderError builds the graceful close response for a failed turn.
func (b *Bot) renderError(req *lexv2.Request) []byte {
	resp := dialog.FailedClose(req, lexv2.PlainText{Content: b.errorText()})
	formatted, err := channels.FormatForChannel(resp, b.channelFor(req))
	if err != nil {
		return b.minimalErrorResponse()
	}
	out, err := json.Marshal(formatted)
	if err != nil {
		return b.minimalErrorResponse()
	}
	return out
}

func (b *Bot) errorText() string {
	if b.conf.ErrorMessage != "" {
		return messages.GetOrDefault(b.conf.ErrorMessage, b.conf.ErrorMessage)
	}
	return messages.GetOrDefault(defaultErrorKey, defaultErrorText)
}

// minimalErrorResponse is the response of last resort, used when the
// event cannot even be parsed. It still resolves the configured error
// message so operators see their own copy on this path too.
func (b *Bot) minimalErrorResponse() []byte {
	resp := &lexv2.Response{
		SessionState: lexv2.SessionState{
			DialogAction: &lexv2.DialogAction{Type: lexv2.DialogActionClose},
			Intent: lexv2.Intent{
				Name:  lexv2.FallbackIntentName,
				State: lexv2.IntentStateFailed,
			},
		},
		Messages: lexv2.Messages{lexv2.PlainText{Content: b.errorText()}},
	}
	out, _ := json.Marshal(resp)
	return out
}
