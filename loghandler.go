package lexful

import (
	"context"

	logevent "github.com/asecurityteam/logevent/v2"

	"github.com/lexful/lexful/lexv2"
)

type loggingHandler struct {
	IntentHandler
	Logger Logger
}

func (h *loggingHandler) Handle(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	ctx = logevent.NewContext(ctx, h.Logger.Copy())
	return h.IntentHandler.Handle(ctx, req)
}

// loggingFetcher wraps each handler in a decorator that injects a logger.
type loggingFetcher struct {
	Logger  Logger
	Fetcher Fetcher
}

// Fetch calls the underlying Fetcher and adds log injection.
func (f *loggingFetcher) Fetch(ctx context.Context, name string) (IntentHandler, error) {
	h, err := f.Fetcher.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return &loggingHandler{Logger: f.Logger, IntentHandler: h}, nil
}
