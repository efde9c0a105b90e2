package lexful

import (
	"context"
	"fmt"

	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/lexv2"
)

// MockingFetcher sources original handlers from another Fetcher
// and mocks out the results. The real handler is still resolved, so
// unknown intents fail the same way they would in a live build, but its
// logic never runs. Mock builds use this to exercise routing, session
// plumbing, and channel formatting in isolation.
type MockingFetcher struct {
	Fetcher Fetcher
}

// Fetch calls the underlying Fetcher and mocks the results.
func (f *MockingFetcher) Fetch(ctx context.Context, name string) (IntentHandler, error) {
	if _, err := f.Fetcher.Fetch(ctx, name); err != nil {
		return nil, err
	}
	return mockHandler(name), nil
}

func mockHandler(name string) IntentHandler {
	return IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
		msg := lexv2.PlainText{
			Content: fmt.Sprintf("Mock fulfillment for intent %s.", name),
		}
		return dialog.Close(req, msg), nil
	})
}
