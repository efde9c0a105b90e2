package lexful

import (
	"context"
	"fmt"
	"os"
	"strings"

	logevent "github.com/asecurityteam/logevent/v2"
	"github.com/asecurityteam/runhttp"
	settings "github.com/asecurityteam/settings/v2"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/xstats"
)

const (
	// BuildModeHTTP is the standard mode of running an HTTP server
	// that exposes the bot behind a local rendition of the Lambda
	// Invoke API.
	BuildModeHTTP = "http"
	// BuildModeHTTPMock runs the HTTP server but with mocked versions
	// of the intent handlers loaded.
	BuildModeHTTPMock = "http_mock"
	// BuildModeLambda runs the official lambda server using the lambda
	// SDK.
	BuildModeLambda = "lambda"
	// BuildModeLambdaMock runs the official lambda server using the lambda
	// SDK but with mocked versions of the intent handlers loaded.
	BuildModeLambdaMock = "lambda_mock"
)

var (
	// BuildMode determines the behavior of the Start method. There
	// are several ways to use this value. The suggested way is through
	// build variables by adding `-ldflags "-X github.com/lexful/lexful.BuildMode=<value>"`
	// to `go build` or `go run` commands. If you want to use environment variables
	// instead then you can set this variable in code before calling Start
	// like `lexful.BuildMode=os.Getenv("MYENVVAR")`.
	//
	// Alternatively, the StartMode() method may be used if you prefer to pass in
	// parameters via code rather than toggling the global setting.
	BuildMode = BuildModeHTTP
	// TargetIntent narrows a native lambda build to a single intent
	// handler instead of the full bot, so one intent can be deployed and
	// exercised in isolation. This value can be set in all the same ways
	// as the BuildMode value. Empty means the full bot.
	TargetIntent = ""
)

// Start is a replacement for the lambda.Start method that introduces new
// features. By default, this method will start the local HTTP API and
// route turns through the given bot.
func Start(ctx context.Context, s settings.Source, b *Bot) error {
	return StartMode(ctx, s, b, BuildMode, TargetIntent)
}

// StartMode works just like Start but allows for explicit passing of the build
// mode and target intent.
func StartMode(ctx context.Context, s settings.Source, b *Bot, mode string, target string) error {
	switch {
	case strings.EqualFold(mode, BuildModeHTTP):
		return StartHTTP(ctx, s, b)
	case strings.EqualFold(mode, BuildModeHTTPMock):
		return StartHTTPMock(ctx, s, b)
	case strings.EqualFold(mode, BuildModeLambda):
		return StartLambda(ctx, b, target)
	case strings.EqualFold(mode, BuildModeLambdaMock):
		return StartLambdaMock(ctx, b, target)
	default:
		return fmt.Errorf("unknown build mode %s", mode)
	}
}

func newHTTPRuntime(ctx context.Context, s settings.Source, b *Bot) (*runhttp.Runtime, error) {
	rt := new(runhttp.Runtime)
	err := settings.NewComponent(
		ctx,
		&settings.PrefixSource{Source: s, Prefix: []string{"lexful"}},
		runhttp.NewComponent(),
		rt,
	)
	if err != nil {
		return nil, err
	}
	// Each dispatch gets a fresh logger copy and the runtime stat client
	// so handler annotations never bleed across turns.
	fetcher := decorateFetcher(b.Fetcher(), rt.Logger, rt.Stats)
	conf := &RouterConfig{
		Bot:     b.WithFetcher(fetcher),
		Fetcher: fetcher,
	}
	rt.Handler = NewRouter(conf)
	return rt, nil
}

// decorateFetcher layers log and stat injection over a handler source.
func decorateFetcher(f Fetcher, logger Logger, stat Stat) Fetcher {
	return &loggingFetcher{
		Logger:  logger,
		Fetcher: &statFetcher{Stat: stat, Fetcher: f},
	}
}

// StartHTTP runs the HTTP API.
func StartHTTP(ctx context.Context, s settings.Source, b *Bot) error {
	rt, err := newHTTPRuntime(ctx, s, b)
	if err != nil {
		return err
	}
	return rt.Run()
}

// StartHTTPMock runs the HTTP API with mocked out intent handlers.
func StartHTTPMock(ctx context.Context, s settings.Source, b *Bot) error {
	return StartHTTP(ctx, s, b.WithFetcher(&MockingFetcher{Fetcher: b.Fetcher()}))
}

// StartLambda runs the official lambda server. A non-empty target narrows
// the deployment to that single intent handler.
func StartLambda(ctx context.Context, b *Bot, target string) error {
	var handler lambda.Handler = b
	if target != "" {
		h, err := b.Fetcher().Fetch(ctx, target)
		if err != nil {
			return err
		}
		handler = intentInvoker{handler: h, channel: b.conf.DefaultChannel}
	}
	lambda.StartWithOptions(&lambdaSeed{
		Handler: handler,
		Logger:  logevent.New(logevent.Config{Output: os.Stdout}),
		Stat:    xstats.FromContext(context.Background()),
	}, lambda.WithContext(ctx))
	return nil
}

// StartLambdaMock runs the official lambda server with mocked out intent
// handlers.
func StartLambdaMock(ctx context.Context, b *Bot, target string) error {
	return StartLambda(ctx, b.WithFetcher(&MockingFetcher{Fetcher: b.Fetcher()}), target)
}

// lambdaSeed injects the process logger and stat client into each
// invocation context. The HTTP modes get this from the runhttp middleware;
// the native lambda server has no equivalent hook so the handler is wrapped
// instead.
type lambdaSeed struct {
	Handler lambda.Handler
	Logger  Logger
	Stat    Stat
}

func (h *lambdaSeed) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	ctx = logevent.NewContext(ctx, h.Logger.Copy())
	ctx = xstats.NewContext(ctx, h.Stat)
	return h.Handler.Invoke(ctx, payload)
}
