package lexful

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gorilla/websocket"

	"github.com/lexful/lexful/channels"
	"github.com/lexful/lexful/lexv2"
)

// consoleTurn is one utterance sent by a dev console client. Intent may be
// left empty to continue the session's current intent.
type consoleTurn struct {
	SessionID  string            `json:"sessionId,omitempty"`
	Intent     string            `json:"intent,omitempty"`
	Text       string            `json:"text"`
	Locale     string            `json:"locale,omitempty"`
	Slots      map[string]string `json:"slots,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// consoleReply carries the bot's answer for one turn: the messages
// rendered as text plus the raw response payload for inspection.
type consoleReply struct {
	SessionID string           `json:"sessionId"`
	Messages  []consoleMessage `json:"messages"`
	Response  json.RawMessage  `json:"response,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type consoleMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Console is a WebSocket endpoint for driving the bot interactively
// during development. Each connection gets a session whose state carries
// across turns, mirroring how Lex maintains sessionState between
// invocations, so multi-turn flows can be exercised end to end without a
// deployed bot.
type Console struct {
	LogFn    LogFn
	Bot      lambda.Handler
	Sessions *SessionStore
	Upgrader websocket.Upgrader
}

func (c *Console) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		return
	}
	defer conn.Close()

	logger := c.LogFn(r.Context())
	sessionID := c.Sessions.NewID()
	// Only the generated session is cleaned up on disconnect. Sessions a
	// client pins by id outlive the connection so another connection can
	// resume them.
	generatedID := sessionID
	logger.Info(consoleSessionStarted{SessionID: sessionID})
	defer func() {
		logger.Info(consoleSessionEnded{
			SessionID: sessionID,
			Turns:     len(c.Sessions.Turns(sessionID)),
		})
		c.Sessions.Delete(generatedID)
	}()

	for {
		var turn consoleTurn
		if err := conn.ReadJSON(&turn); err != nil {
			return
		}
		// Clients may pin their own session id to resume a prior session.
		if turn.SessionID != "" {
			sessionID = turn.SessionID
		}
		reply := c.handleTurn(r.Context(), sessionID, turn)
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (c *Console) handleTurn(ctx context.Context, sessionID string, turn consoleTurn) consoleReply {
	payload, err := json.Marshal(c.synthesizeEvent(sessionID, turn))
	if err != nil {
		return consoleReply{SessionID: sessionID, Error: err.Error()}
	}
	out, err := c.Bot.Invoke(ctx, payload)
	if err != nil {
		return consoleReply{SessionID: sessionID, Error: err.Error()}
	}
	var resp struct {
		SessionState lexv2.SessionState `json:"sessionState"`
		Messages     lexv2.Messages     `json:"messages"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return consoleReply{SessionID: sessionID, Error: err.Error()}
	}
	c.Sessions.SetState(sessionID, resp.SessionState)
	c.Sessions.AppendTurn(sessionID, Turn{
		Input:      turn.Text,
		Response:   out,
		ReceivedAt: time.Now(),
	})
	return consoleReply{
		SessionID: sessionID,
		Messages:  renderMessages(resp.Messages),
		Response:  out,
	}
}

// synthesizeEvent builds the code-hook event Lex would deliver for this
// turn, carrying forward the stored session state.
func (c *Console) synthesizeEvent(sessionID string, turn consoleTurn) *lexv2.Request {
	state, ok := c.Sessions.State(sessionID)
	if !ok {
		state = lexv2.SessionState{SessionAttributes: map[string]string{}}
	}

	intent := state.Intent.Clone()
	if turn.Intent != "" && turn.Intent != intent.Name {
		intent = lexv2.Intent{Name: turn.Intent}
	}
	if intent.Name == "" {
		intent.Name = lexv2.FallbackIntentName
	}
	intent.State = lexv2.IntentStateInProgress
	for name, value := range turn.Slots {
		if intent.Slots == nil {
			intent.Slots = make(map[string]*lexv2.Slot)
		}
		intent.Slots[name] = &lexv2.Slot{
			Shape: lexv2.SlotShapeScalar,
			Value: &lexv2.SlotValue{
				OriginalValue:    value,
				InterpretedValue: value,
				ResolvedValues:   []string{value},
			},
		}
	}
	state.Intent = intent
	for k, v := range turn.Attributes {
		if state.SessionAttributes == nil {
			state.SessionAttributes = make(map[string]string)
		}
		state.SessionAttributes[k] = v
	}

	locale := turn.Locale
	if locale == "" {
		locale = "en_US"
	}
	interpIntent := intent.Clone()
	return &lexv2.Request{
		MessageVersion:      "1.0",
		InvocationSource:    lexv2.SourceFulfillmentCodeHook,
		InputMode:           "Text",
		ResponseContentType: "text/plain; charset=utf-8",
		SessionID:           sessionID,
		InputTranscript:     turn.Text,
		Bot: lexv2.Bot{
			Name:      "console",
			AliasName: "dev",
			LocaleID:  locale,
		},
		Interpretations: []lexv2.Interpretation{{
			Intent:        &interpIntent,
			NLUConfidence: &lexv2.NLUConfidence{Score: 1.0},
		}},
		SessionState: state,
	}
}

func renderMessages(msgs lexv2.Messages) []consoleMessage {
	out := make([]consoleMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := consoleMessage{Type: m.ContentType()}
		switch v := m.(type) {
		case lexv2.PlainText:
			cm.Content = v.Content
		case lexv2.SSML:
			cm.Content = v.Content
		case lexv2.CustomPayload:
			cm.Content = v.Content
		case lexv2.ImageResponseCard:
			cm.Content = channels.CardText(v)
		}
		out = append(out, cm)
	}
	return out
}
