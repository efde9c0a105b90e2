package dialog

import (
	"github.com/lexful/lexful/lexv2"
)

// Session attribute and request attribute keys managed by the runtime.
const (
	// IntentAttribute records the intent that produced the previous
	// response so the next turn can resume a multi-step flow.
	IntentAttribute = "lex_intent"
	// CallbackAttribute names the handler that should run immediately
	// after the current response is built.
	CallbackAttribute = "callback"
	// OptionsProvidedAttribute holds a JSON list of the option values
	// offered to the user on the previous turn.
	OptionsProvidedAttribute = "options_provided"
)

// GetIntent returns the intent under interpretation for this turn. The
// pointer aliases the request, so mutations (slot updates, state changes)
// are visible to every later stage of the turn.
func GetIntent(req *lexv2.Request) *lexv2.Intent {
	return &req.SessionState.Intent
}

// Attr reads a session attribute from the request.
func Attr(req *lexv2.Request, key string) (string, bool) {
	v, ok := req.SessionState.SessionAttributes[key]
	return v, ok
}

// SetAttr writes a session attribute on the request so that it is carried
// into any response built from the request afterwards.
func SetAttr(req *lexv2.Request, key string, value string) {
	if req.SessionState.SessionAttributes == nil {
		req.SessionState.SessionAttributes = make(map[string]string)
	}
	req.SessionState.SessionAttributes[key] = value
}

// DeleteAttr removes a session attribute from the request.
func DeleteAttr(req *lexv2.Request, key string) {
	delete(req.SessionState.SessionAttributes, key)
}

// GetSlot returns the named slot of the current intent, or nil when the
// slot is absent or unfilled.
func GetSlot(req *lexv2.Request, name string) *lexv2.Slot {
	return req.SessionState.Intent.Slots[name]
}

// GetSlotValue returns the resolved value of the named slot, preferring the
// interpreted value over the original utterance. It returns "" for unfilled
// slots.
func GetSlotValue(req *lexv2.Request, name string) string {
	slot := GetSlot(req, name)
	if slot == nil || slot.Value == nil {
		return ""
	}
	if slot.Value.InterpretedValue != "" {
		return slot.Value.InterpretedValue
	}
	return slot.Value.OriginalValue
}

// SetSlotValue fills the named slot of the current intent with an
// interpreted value, creating the slot if it does not exist.
func SetSlotValue(req *lexv2.Request, name string, value string) {
	intent := GetIntent(req)
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

// ClearSlot unfills the named slot so a later elicitation can refill it.
func ClearSlot(req *lexv2.Request, name string) {
	if req.SessionState.Intent.Slots == nil {
		return
	}
	req.SessionState.Intent.Slots[name] = nil
}

// respond builds a response that carries the request's session state and
// request attributes forward. The state is cloned so that builders can
// adjust it without mutating the request.
func respond(req *lexv2.Request, msgs lexv2.Messages) *lexv2.Response {
	resp := &lexv2.Response{
		SessionState: req.SessionState.Clone(),
		Messages:     msgs,
	}
	if len(req.RequestAttributes) > 0 {
		resp.RequestAttributes = make(map[string]string, len(req.RequestAttributes))
		for k, v := range req.RequestAttributes {
			resp.RequestAttributes[k] = v
		}
	}
	return resp
}

// Close ends the current intent. The intent state is marked Fulfilled
// unless the request already carries a Failed state.
func Close(req *lexv2.Request, msgs ...lexv2.Message) *lexv2.Response {
	resp := respond(req, msgs)
	resp.SessionState.DialogAction = &lexv2.DialogAction{Type: lexv2.DialogActionClose}
	if resp.SessionState.Intent.State != lexv2.IntentStateFailed {
		resp.SessionState.Intent.State = lexv2.IntentStateFulfilled
	}
	return resp
}

// FailedClose ends the current intent in the Failed state.
func FailedClose(req *lexv2.Request, msgs ...lexv2.Message) *lexv2.Response {
	resp := respond(req, msgs)
	resp.SessionState.DialogAction = &lexv2.DialogAction{Type: lexv2.DialogActionClose}
	resp.SessionState.Intent.State = lexv2.IntentStateFailed
	return resp
}

// ElicitSlot asks the user to fill the named slot of the current intent.
func ElicitSlot(req *lexv2.Request, slotToElicit string, msgs ...lexv2.Message) *lexv2.Response {
	resp := respond(req, msgs)
	resp.SessionState.DialogAction = &lexv2.DialogAction{
		Type:         lexv2.DialogActionElicitSlot,
		SlotToElicit: slotToElicit,
	}
	resp.SessionState.Intent.State = lexv2.IntentStateInProgress
	return resp
}

// ElicitIntent asks the user what they want to do next. Lex will run
// intent recognition over the reply.
func ElicitIntent(req *lexv2.Request, msgs ...lexv2.Message) *lexv2.Response {
	resp := respond(req, msgs)
	resp.SessionState.DialogAction = &lexv2.DialogAction{Type: lexv2.DialogActionElicitIntent}
	resp.SessionState.Intent.State = lexv2.IntentStateInProgress
	return resp
}

// ConfirmIntent asks the user to confirm the current intent before
// fulfillment. The confirmation state is reset so the reply is recorded
// fresh.
func ConfirmIntent(req *lexv2.Request, msgs ...lexv2.Message) *lexv2.Response {
	resp := respond(req, msgs)
	resp.SessionState.DialogAction = &lexv2.DialogAction{Type: lexv2.DialogActionConfirmIntent}
	resp.SessionState.Intent.State = lexv2.IntentStateInProgress
	resp.SessionState.Intent.ConfirmationState = lexv2.ConfirmationStateNone
	return resp
}

// Delegate hands the next dialog decision back to Lex.
func Delegate(req *lexv2.Request) *lexv2.Response {
	resp := respond(req, nil)
	resp.SessionState.DialogAction = &lexv2.DialogAction{Type: lexv2.DialogActionDelegate}
	return resp
}

// SetCallback marks the response so the runtime invokes the named handler
// immediately after the current one returns, merging both responses.
func SetCallback(resp *lexv2.Response, handlerName string) {
	if resp.RequestAttributes == nil {
		resp.RequestAttributes = make(map[string]string)
	}
	resp.RequestAttributes[CallbackAttribute] = handlerName
}

// TakeCallback removes and returns the callback handler name from the
// response, if one was set.
func TakeCallback(resp *lexv2.Response) (string, bool) {
	if resp == nil || resp.RequestAttributes == nil {
		return "", false
	}
	name, ok := resp.RequestAttributes[CallbackAttribute]
	if !ok {
		return "", false
	}
	delete(resp.RequestAttributes, CallbackAttribute)
	return name, ok
}
