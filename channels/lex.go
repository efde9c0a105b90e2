package channels

import (
	"strings"

	"github.com/lexful/lexful/lexv2"
)

// LexChannel targets surfaces that render the Lex message types natively,
// such as the Lex console and Connect chat. Messages pass through mostly
// untouched and cards stay interactive.
type LexChannel struct{}

// Name implements Channel.
func (LexChannel) Name() string { return NameLex }

// FormatMessage dispatches on the concrete message type. Image cards
// render as their textual form here; the response-level formatter keeps
// them interactive instead.
func (c LexChannel) FormatMessage(msg lexv2.Message) lexv2.Message {
	switch m := msg.(type) {
	case lexv2.PlainText:
		return c.FormatPlainText(m)
	case lexv2.SSML:
		return c.FormatSSML(m)
	case lexv2.CustomPayload:
		return c.FormatCustomPayload(m)
	case lexv2.ImageResponseCard:
		return lexv2.PlainText{Content: CardText(m)}
	default:
		return lexv2.PlainText{Content: unsupportedMessageText}
	}
}

// FormatPlainText implements Channel.
func (LexChannel) FormatPlainText(msg lexv2.PlainText) lexv2.Message { return msg }

// FormatSSML implements Channel.
func (LexChannel) FormatSSML(msg lexv2.SSML) lexv2.Message { return msg }

// FormatCustomPayload replaces a payload that carries a "text" or
// "message" field with the plain text it holds. Other payloads pass
// through for the client to interpret.
func (LexChannel) FormatCustomPayload(msg lexv2.CustomPayload) lexv2.Message {
	if text, ok := payloadText(msg); ok {
		return lexv2.PlainText{Content: text}
	}
	return msg
}

// FormatImageCard passes the card through unchanged. No options are
// recorded because the buttons remain clickable.
func (LexChannel) FormatImageCard(card lexv2.ImageResponseCard) (lexv2.Message, []string) {
	return card, nil
}

// CardText renders an image response card as plain text, with buttons
// shown by value. Text-only surfaces such as transcripts use this.
func CardText(card lexv2.ImageResponseCard) string {
	parts := []string{card.Card.Title}
	if card.Card.Subtitle != "" {
		parts = append(parts, card.Card.Subtitle)
	}
	if card.Card.ImageURL != "" {
		parts = append(parts, "Image: "+card.Card.ImageURL)
	}
	if len(card.Card.Buttons) > 0 {
		buttons := make([]string, 0, len(card.Card.Buttons))
		for _, btn := range card.Card.Buttons {
			buttons = append(buttons, "["+btn.Text+" -> "+btn.Value+"]")
		}
		parts = append(parts, "Buttons: "+strings.Join(buttons, " "))
	}
	return strings.Join(parts, "\n")
}
