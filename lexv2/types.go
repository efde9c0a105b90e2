package lexv2

import (
	"encoding/json"
	"fmt"
)

// Invocation sources reported by Lex in the code-hook event.
const (
	SourceDialogCodeHook      = "DialogCodeHook"
	SourceFulfillmentCodeHook = "FulfillmentCodeHook"
)

// Dialog action types accepted in a response.
const (
	DialogActionClose         = "Close"
	DialogActionConfirmIntent = "ConfirmIntent"
	DialogActionDelegate      = "Delegate"
	DialogActionElicitIntent  = "ElicitIntent"
	DialogActionElicitSlot    = "ElicitSlot"
)

// Intent fulfillment states.
const (
	IntentStateFailed                = "Failed"
	IntentStateFulfilled             = "Fulfilled"
	IntentStateFulfillmentInProgress = "FulfillmentInProgress"
	IntentStateInProgress            = "InProgress"
	IntentStateReadyForFulfillment   = "ReadyForFulfillment"
	IntentStateWaiting               = "Waiting"
)

// Intent confirmation states.
const (
	ConfirmationStateNone      = "None"
	ConfirmationStateConfirmed = "Confirmed"
	ConfirmationStateDenied    = "Denied"
)

// Slot shapes.
const (
	SlotShapeScalar = "Scalar"
	SlotShapeList   = "List"
)

// FallbackIntentName is the built-in intent Lex routes unrecognized input to.
const FallbackIntentName = "FallbackIntent"

// Request is the event Lex delivers to a fulfillment Lambda. Field names
// follow the service contract; fields this framework never interprets are
// carried as raw JSON so they survive a round trip untouched.
type Request struct {
	MessageVersion      string            `json:"messageVersion,omitempty"`
	InvocationSource    string            `json:"invocationSource,omitempty"`
	InputMode           string            `json:"inputMode,omitempty"`
	ResponseContentType string            `json:"responseContentType,omitempty"`
	SessionID           string            `json:"sessionId,omitempty"`
	InputTranscript     string            `json:"inputTranscript,omitempty"`
	InvocationLabel     string            `json:"invocationLabel,omitempty"`
	Bot                 Bot               `json:"bot"`
	Interpretations     []Interpretation  `json:"interpretations,omitempty"`
	ProposedNextState   json.RawMessage   `json:"proposedNextState,omitempty"`
	RequestAttributes   map[string]string `json:"requestAttributes,omitempty"`
	SessionState        SessionState      `json:"sessionState"`
	Transcriptions      json.RawMessage   `json:"transcriptions,omitempty"`
}

// Bot identifies the bot, alias, and locale that produced the event.
type Bot struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	AliasID   string `json:"aliasId,omitempty"`
	AliasName string `json:"aliasName,omitempty"`
	LocaleID  string `json:"localeId,omitempty"`
	Version   string `json:"version,omitempty"`
}

// SessionState is the conversation state carried on both the request and the
// response. Session attributes are string valued on the wire which is why the
// map is not interface typed.
type SessionState struct {
	ActiveContexts       []ActiveContext   `json:"activeContexts,omitempty"`
	SessionAttributes    map[string]string `json:"sessionAttributes,omitempty"`
	RuntimeHints         json.RawMessage   `json:"runtimeHints,omitempty"`
	DialogAction         *DialogAction     `json:"dialogAction,omitempty"`
	Intent               Intent            `json:"intent"`
	OriginatingRequestID string            `json:"originatingRequestId,omitempty"`
}

// Intent is the recognized intent with its slot values.
type Intent struct {
	Name              string           `json:"name,omitempty"`
	Slots             map[string]*Slot `json:"slots,omitempty"`
	State             string           `json:"state,omitempty"`
	ConfirmationState string           `json:"confirmationState,omitempty"`
	KendraResponse    json.RawMessage  `json:"kendraResponse,omitempty"`
}

// Slot holds a single captured slot. Multi-valued slots use Shape "List" and
// populate Values instead of Value.
type Slot struct {
	Shape  string     `json:"shape,omitempty"`
	Value  *SlotValue `json:"value,omitempty"`
	Values []Slot     `json:"values,omitempty"`
}

// SlotValue is the resolved value of a scalar slot.
type SlotValue struct {
	InterpretedValue string   `json:"interpretedValue,omitempty"`
	OriginalValue    string   `json:"originalValue,omitempty"`
	ResolvedValues   []string `json:"resolvedValues,omitempty"`
}

// ActiveContext scopes intent recognition for a number of turns or seconds.
type ActiveContext struct {
	Name              string            `json:"name"`
	ContextAttributes map[string]string `json:"contextAttributes"`
	TimeToLive        TimeToLive        `json:"timeToLive"`
}

// TimeToLive bounds how long an active context stays alive.
type TimeToLive struct {
	TimeToLiveInSeconds int `json:"timeToLiveInSeconds"`
	TurnsToLive         int `json:"turnsToLive"`
}

// Interpretation is one candidate reading of the utterance, scored by the
// Lex NLU.
type Interpretation struct {
	Intent               *Intent         `json:"intent,omitempty"`
	NLUConfidence        *NLUConfidence  `json:"nluConfidence,omitempty"`
	SentimentResponse    json.RawMessage `json:"sentimentResponse,omitempty"`
	InterpretationSource string          `json:"interpretationSource,omitempty"`
}

// NLUConfidence wraps the confidence score of an interpretation.
type NLUConfidence struct {
	Score float64 `json:"score"`
}

// DialogAction tells Lex what to do next.
type DialogAction struct {
	Type                 string `json:"type"`
	SlotToElicit         string `json:"slotToElicit,omitempty"`
	SlotElicitationStyle string `json:"slotElicitationStyle,omitempty"`
}

// Response is the payload returned to Lex from the fulfillment Lambda.
type Response struct {
	SessionState      SessionState      `json:"sessionState"`
	Messages          Messages          `json:"messages,omitempty"`
	RequestAttributes map[string]string `json:"requestAttributes,omitempty"`
}

// ParseRequest decodes a raw code-hook event. Unknown fields are tolerated,
// malformed JSON is not. The returned request always has a non-nil session
// attribute map so handlers can write to it without checking.
func ParseRequest(b []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("lexv2: decode request: %w", err)
	}
	if req.SessionState.SessionAttributes == nil {
		req.SessionState.SessionAttributes = map[string]string{}
	}
	return &req, nil
}

// Clone returns a deep copy of the session state.
func (s SessionState) Clone() SessionState {
	out := s
	if s.ActiveContexts != nil {
		out.ActiveContexts = make([]ActiveContext, len(s.ActiveContexts))
		for i, c := range s.ActiveContexts {
			out.ActiveContexts[i] = c.Clone()
		}
	}
	out.SessionAttributes = cloneStringMap(s.SessionAttributes)
	if s.DialogAction != nil {
		da := *s.DialogAction
		out.DialogAction = &da
	}
	out.Intent = s.Intent.Clone()
	out.RuntimeHints = cloneRaw(s.RuntimeHints)
	return out
}

// Clone returns a deep copy of the context.
func (c ActiveContext) Clone() ActiveContext {
	out := c
	out.ContextAttributes = cloneStringMap(c.ContextAttributes)
	return out
}

// Clone returns a deep copy of the intent and its slots.
func (i Intent) Clone() Intent {
	out := i
	if i.Slots != nil {
		out.Slots = make(map[string]*Slot, len(i.Slots))
		for name, slot := range i.Slots {
			if slot == nil {
				out.Slots[name] = nil
				continue
			}
			s := slot.Clone()
			out.Slots[name] = &s
		}
	}
	out.KendraResponse = cloneRaw(i.KendraResponse)
	return out
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	out := s
	if s.Value != nil {
		v := *s.Value
		if s.Value.ResolvedValues != nil {
			v.ResolvedValues = append([]string(nil), s.Value.ResolvedValues...)
		}
		out.Value = &v
	}
	if s.Values != nil {
		out.Values = make([]Slot, len(s.Values))
		for i, sub := range s.Values {
			out.Values[i] = sub.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{
		SessionState:      r.SessionState.Clone(),
		Messages:          r.Messages.Clone(),
		RequestAttributes: cloneStringMap(r.RequestAttributes),
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}
