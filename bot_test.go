package lexful

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexful/lexful/channels"
	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/disambiguation"
	"github.com/lexful/lexful/lexv2"
)

// closeResponse is a minimal fulfilled close used as a canned handler
// result throughout the tests.
func closeResponse(text string) *lexv2.Response {
	return &lexv2.Response{
		SessionState: lexv2.SessionState{
			DialogAction: &lexv2.DialogAction{Type: lexv2.DialogActionClose},
			Intent:       lexv2.Intent{State: lexv2.IntentStateFulfilled},
		},
		Messages: lexv2.Messages{lexv2.PlainText{Content: text}},
	}
}

// testEvent builds a marshaled code-hook event for the named intent.
func testEvent(t *testing.T, intent string, mutate func(*lexv2.Request)) []byte {
	t.Helper()
	req := &lexv2.Request{
		MessageVersion:   "1.0",
		InvocationSource: lexv2.SourceFulfillmentCodeHook,
		SessionID:        "session-1",
		Bot:              lexv2.Bot{Name: "testbot", LocaleID: "en_US"},
		SessionState: lexv2.SessionState{
			SessionAttributes: map[string]string{},
			Intent:            lexv2.Intent{Name: intent, State: lexv2.IntentStateInProgress},
		},
	}
	if mutate != nil {
		mutate(req)
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func testConfig() Config {
	conf := DefaultConfig()
	conf.AutoInitializeMessages = false
	conf.LogFn = testLogFn
	conf.StatFn = testStatFn
	return conf
}

func decodeResponse(t *testing.T, b []byte) *lexv2.Response {
	t.Helper()
	var resp lexv2.Response
	require.NoError(t, json.Unmarshal(b, &resp))
	return &resp
}

func TestBotInvokeStampsIntentAndExitContext(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"greeting": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			return dialog.Close(req, lexv2.PlainText{Content: "hello"}), nil
		}),
	}}
	b := NewBot(fetcher, testConfig())

	out, err := b.Invoke(context.Background(), testEvent(t, "Greeting", nil))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.DialogActionClose, resp.SessionState.DialogAction.Type)
	assert.Equal(t, "Greeting", resp.SessionState.SessionAttributes[dialog.IntentAttribute])
	require.Len(t, resp.SessionState.ActiveContexts, 1)
	assert.Equal(t, defaultExitContextName, resp.SessionState.ActiveContexts[0].Name)
	assert.Equal(t, exitContextSeconds, resp.SessionState.ActiveContexts[0].TimeToLive.TimeToLiveInSeconds)
	assert.Equal(t, exitContextTurns, resp.SessionState.ActiveContexts[0].TimeToLive.TurnsToLive)
}

func TestBotInvokeSkipsExitContextForExitFlow(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"common_exit_feedback": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			return dialog.Close(req, lexv2.PlainText{Content: "bye"}), nil
		}),
	}}
	b := NewBot(fetcher, testConfig())

	out, err := b.Invoke(context.Background(), testEvent(t, "Common_Exit_Feedback", nil))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Empty(t, resp.SessionState.ActiveContexts)
	assert.Equal(t, "Common_Exit_Feedback", resp.SessionState.SessionAttributes[dialog.IntentAttribute])
}

func TestBotInvokeParseFailureHandled(t *testing.T) {
	b := NewBot(&StaticFetcher{}, testConfig())

	out, err := b.Invoke(context.Background(), []byte("not json"))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.DialogActionClose, resp.SessionState.DialogAction.Type)
	assert.Equal(t, lexv2.FallbackIntentName, resp.SessionState.Intent.Name)
	assert.Equal(t, lexv2.IntentStateFailed, resp.SessionState.Intent.State)
	require.Len(t, resp.Messages, 1)
}

func TestBotInvokeParseFailureUsesConfiguredErrorMessage(t *testing.T) {
	conf := testConfig()
	conf.ErrorMessage = "My fault, try once more."
	b := NewBot(&StaticFetcher{}, conf)

	out, err := b.Invoke(context.Background(), []byte("not json"))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.FallbackIntentName, resp.SessionState.Intent.Name)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, lexv2.PlainText{Content: conf.ErrorMessage}, resp.Messages[0])
}

func TestBotInvokeParseFailureUnhandled(t *testing.T) {
	conf := testConfig()
	conf.AutoHandleErrors = false
	b := NewBot(&StaticFetcher{}, conf)

	_, err := b.Invoke(context.Background(), []byte("not json"))
	require.Error(t, err)
}

func TestBotInvokeHandlerErrorHandled(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"greeting": IntentFunc(func(context.Context, *lexv2.Request) (*lexv2.Response, error) {
			return nil, errors.New("boom")
		}),
	}}
	b := NewBot(fetcher, testConfig())

	out, err := b.Invoke(context.Background(), testEvent(t, "Greeting", nil))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.IntentStateFailed, resp.SessionState.Intent.State)
	assert.Equal(t, lexv2.DialogActionClose, resp.SessionState.DialogAction.Type)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, lexv2.PlainText{Content: defaultErrorText}, resp.Messages[0])
}

func TestBotInvokeCustomErrorMessage(t *testing.T) {
	conf := testConfig()
	conf.ErrorMessage = "My fault, try once more."
	b := NewBot(&StaticFetcher{}, conf)

	out, err := b.Invoke(context.Background(), testEvent(t, "Missing", nil))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, lexv2.PlainText{Content: conf.ErrorMessage}, resp.Messages[0])
}

func TestBotInvokeNotFoundUnhandled(t *testing.T) {
	conf := testConfig()
	conf.AutoHandleErrors = false
	b := NewBot(&StaticFetcher{}, conf)

	_, err := b.Invoke(context.Background(), testEvent(t, "Missing", nil))
	require.Error(t, err)
	var nf NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Missing", nf.Intent)
}

func TestBotInvokeCallback(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"book_trip": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			resp := dialog.Close(req, lexv2.PlainText{Content: "booked"})
			dialog.SetCallback(resp, "send_receipt")
			return resp, nil
		}),
		"send_receipt": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			return dialog.Close(req, lexv2.PlainText{Content: "receipt sent"}), nil
		}),
	}}
	b := NewBot(fetcher, testConfig())

	out, err := b.Invoke(context.Background(), testEvent(t, "BookTrip", nil))
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, lexv2.PlainText{Content: "booked"}, resp.Messages[0])
	assert.Equal(t, lexv2.PlainText{Content: "receipt sent"}, resp.Messages[1])
	_, leaked := resp.RequestAttributes[dialog.CallbackAttribute]
	assert.False(t, leaked, "callback attribute leaked into the final response")
}

func TestBotInvokeInterceptsUnknownChoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The fetcher must never be consulted when the reply fails option
	// validation.
	fetcher := NewMockFetcher(ctrl)
	b := NewBot(fetcher, testConfig())

	event := testEvent(t, "PickColor", func(req *lexv2.Request) {
		req.InputTranscript = "green"
		req.SessionState.SessionAttributes[dialog.OptionsProvidedAttribute] = `["Red","Blue"]`
		req.SessionState.DialogAction = &lexv2.DialogAction{
			Type:         lexv2.DialogActionElicitSlot,
			SlotToElicit: "Color",
		}
	})
	out, err := b.Invoke(context.Background(), event)
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.DialogActionElicitSlot, resp.SessionState.DialogAction.Type)
	assert.Equal(t, "Color", resp.SessionState.DialogAction.SlotToElicit)
	require.Len(t, resp.Messages, 1)
}

func TestBotInvokeDisambiguates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := NewMockFetcher(ctrl)
	conf := testConfig()
	conf.EnableDisambiguation = true
	b := NewBot(fetcher, conf)

	event := testEvent(t, "BookHotel", func(req *lexv2.Request) {
		req.InputTranscript = "book something"
		req.Interpretations = []lexv2.Interpretation{
			{Intent: &lexv2.Intent{Name: "BookHotel"}, NLUConfidence: &lexv2.NLUConfidence{Score: 0.42}},
			{Intent: &lexv2.Intent{Name: "BookFlight"}, NLUConfidence: &lexv2.NLUConfidence{Score: 0.40}},
		}
	})
	out, err := b.Invoke(context.Background(), event)
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	assert.Equal(t, lexv2.DialogActionElicitIntent, resp.SessionState.DialogAction.Type)
	assert.NotEmpty(t, resp.SessionState.SessionAttributes[disambiguation.CandidatesAttribute])
}

func TestBotInvokeAppliesDisambiguationSelection(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"book_flight": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			return dialog.Close(req, lexv2.PlainText{Content: "flight it is"}), nil
		}),
	}}
	conf := testConfig()
	conf.EnableDisambiguation = true
	b := NewBot(fetcher, conf)

	cands, _ := json.Marshal([]disambiguation.Candidate{
		{IntentName: "BookHotel", Label: "Book Hotel", Score: 0.42},
		{IntentName: "BookFlight", Label: "Book Flight", Score: 0.40},
	})
	event := testEvent(t, lexv2.FallbackIntentName, func(req *lexv2.Request) {
		req.InputTranscript = "2"
		req.SessionState.SessionAttributes[disambiguation.CandidatesAttribute] = string(cands)
	})
	out, err := b.Invoke(context.Background(), event)
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, lexv2.PlainText{Content: "flight it is"}, resp.Messages[0])
	assert.Equal(t, "BookFlight", resp.SessionState.SessionAttributes[dialog.IntentAttribute])
}

func TestBotInvokeFormatsForSMS(t *testing.T) {
	fetcher := &StaticFetcher{Handlers: map[string]IntentHandler{
		"pick_color": IntentFunc(func(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
			card := lexv2.NewImageResponseCard("Pick a color", "", lexv2.NewButton("Red"), lexv2.NewButton("Blue"))
			return dialog.ElicitSlot(req, "Color", card), nil
		}),
	}}
	b := NewBot(fetcher, testConfig())

	event := testEvent(t, "PickColor", func(req *lexv2.Request) {
		req.RequestAttributes = map[string]string{
			channels.PlatformAttribute: "Twilio-SMS",
		}
	})
	out, err := b.Invoke(context.Background(), event)
	require.NoError(t, err)
	resp := decodeResponse(t, out)

	require.Len(t, resp.Messages, 1)
	text, ok := resp.Messages[0].(lexv2.PlainText)
	require.True(t, ok, "SMS should flatten cards to plain text")
	assert.Contains(t, text.Content, "1. Red")
	assert.Equal(t, `["Red","Blue"]`, resp.SessionState.SessionAttributes[dialog.OptionsProvidedAttribute])
}

func TestBotWithFetcher(t *testing.T) {
	orig := &StaticFetcher{}
	b := NewBot(orig, testConfig())
	mocked := b.WithFetcher(&MockingFetcher{Fetcher: b.Fetcher()})

	assert.NotSame(t, b, mocked)
	assert.Equal(t, orig, b.Fetcher())
}
