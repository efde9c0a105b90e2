package lexful

import (
	"context"

	"github.com/rs/xstats"

	"github.com/lexful/lexful/lexv2"
)

type statHandler struct {
	IntentHandler
	Stat Stat
}

func (h *statHandler) Handle(ctx context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	ctx = xstats.NewContext(ctx, h.Stat)
	return h.IntentHandler.Handle(ctx, req)
}

// statFetcher wraps each handler in a decorator that injects a stat client.
type statFetcher struct {
	Stat    Stat
	Fetcher Fetcher
}

// Fetch calls the underlying Fetcher and adds stat client injection.
func (f *statFetcher) Fetch(ctx context.Context, name string) (IntentHandler, error) {
	h, err := f.Fetcher.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return &statHandler{Stat: f.Stat, IntentHandler: h}, nil
}
