package dialog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lexful/lexful/lexv2"
)

// EncodeOptions serializes option values for storage in the
// OptionsProvidedAttribute session attribute.
func EncodeOptions(options []string) string {
	b, _ := json.Marshal(options)
	return string(b)
}

// ProvidedOptions decodes the option values recorded by the previous
// response, if any. A missing or malformed attribute yields nil.
func ProvidedOptions(req *lexv2.Request) []string {
	raw, ok := Attr(req, OptionsProvidedAttribute)
	if !ok || raw == "" {
		return nil
	}
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil
	}
	return options
}

// ResolveChoice maps the user's reply onto one of the options recorded by
// the previous response. Replies match case-insensitively on the option
// value, or by 1-based position for channels that render numbered lists.
func ResolveChoice(req *lexv2.Request) (string, bool) {
	options := ProvidedOptions(req)
	if len(options) == 0 {
		return "", false
	}
	input := strings.TrimSpace(req.InputTranscript)
	if input == "" {
		return "", false
	}
	for _, option := range options {
		if strings.EqualFold(strings.TrimSpace(option), input) {
			return option, true
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true
	}
	return "", false
}

// AnyUnknownSlotChoice reports whether the previous response offered the
// user a fixed set of options and the reply matches none of them. Turns
// with no recorded options never match.
func AnyUnknownSlotChoice(req *lexv2.Request) bool {
	options := ProvidedOptions(req)
	if len(options) == 0 {
		return false
	}
	if strings.TrimSpace(req.InputTranscript) == "" {
		return false
	}
	_, ok := ResolveChoice(req)
	return !ok
}

// HandleAnyUnknownSlotChoice builds the retry response for a reply that
// matched none of the offered options. The options are restated and the
// dialog re-elicits the slot that was being filled, or the intent when no
// slot elicitation was in flight. The options-provided attribute is
// rewritten per turn by the channel formatter, so only replies to a turn
// that actually offered options are validated.
func HandleAnyUnknownSlotChoice(req *lexv2.Request) *lexv2.Response {
	options := ProvidedOptions(req)
	content := "Sorry, I didn't understand that choice."
	if len(options) > 0 {
		content += " Please choose one of: " + strings.Join(options, ", ") + "."
	}
	msg := lexv2.PlainText{Content: content}
	if da := req.SessionState.DialogAction; da != nil && da.SlotToElicit != "" {
		return ElicitSlot(req, da.SlotToElicit, msg)
	}
	return ElicitIntent(req, msg)
}
