package channels

import (
	"fmt"

	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/lexv2"
)

// FormatForChannel renders every message of a response for the named
// channel and returns the formatted copy. The input response is not
// modified.
//
// Option values captured while flattening cards are recorded in the
// options-provided session attribute; when the turn offers no options the
// attribute is removed so a stale list cannot intercept later replies.
func FormatForChannel(resp *lexv2.Response, name string) (*lexv2.Response, error) {
	ch := ForName(name)
	out := resp.Clone()

	// Only the wire-safe message types are formattable at the response
	// level. Custom payloads are a direct-call concern (FormatMessage);
	// here they fail the turn like any other unmapped type.
	formatted := make(lexv2.Messages, 0, len(out.Messages))
	var options []string
	for _, msg := range out.Messages {
		switch m := msg.(type) {
		case lexv2.PlainText:
			formatted = append(formatted, ch.FormatPlainText(m))
		case lexv2.SSML:
			formatted = append(formatted, ch.FormatSSML(m))
		case lexv2.ImageResponseCard:
			fm, opts := ch.FormatImageCard(m)
			formatted = append(formatted, fm)
			options = append(options, opts...)
		default:
			return nil, fmt.Errorf("channels: no formatter for message type %T", msg)
		}
	}

	// Lex rejects a response whose only message is an image card, contrary
	// to its documentation. Lead with the title and blank it on the card.
	if len(formatted) == 1 {
		if card, ok := formatted[0].(lexv2.ImageResponseCard); ok {
			lead := lexv2.PlainText{Content: card.Card.Title}
			card.Card.Title = " "
			formatted = lexv2.Messages{lead, card}
		}
	}
	out.Messages = formatted

	if len(options) > 0 {
		if out.SessionState.SessionAttributes == nil {
			out.SessionState.SessionAttributes = make(map[string]string, 1)
		}
		out.SessionState.SessionAttributes[dialog.OptionsProvidedAttribute] = dialog.EncodeOptions(options)
	} else if out.SessionState.SessionAttributes != nil {
		delete(out.SessionState.SessionAttributes, dialog.OptionsProvidedAttribute)
	}
	return out, nil
}
