package channels

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexful/lexful/lexv2"
)

var ssmlTags = regexp.MustCompile(`<[^>]*>`)

// SMSChannel targets text-only messaging. SSML is stripped to its spoken
// text and image cards become numbered option lists.
type SMSChannel struct{}

// Name implements Channel.
func (SMSChannel) Name() string { return NameSMS }

// FormatMessage dispatches on the concrete message type. Options that a
// flattened card offered are dropped on this path; use FormatForChannel
// when they need to be recorded for the next turn.
func (c SMSChannel) FormatMessage(msg lexv2.Message) lexv2.Message {
	switch m := msg.(type) {
	case lexv2.PlainText:
		return c.FormatPlainText(m)
	case lexv2.SSML:
		return c.FormatSSML(m)
	case lexv2.CustomPayload:
		return c.FormatCustomPayload(m)
	case lexv2.ImageResponseCard:
		fm, _ := c.FormatImageCard(m)
		return fm
	default:
		return lexv2.PlainText{Content: unsupportedMessageText}
	}
}

// FormatPlainText implements Channel.
func (SMSChannel) FormatPlainText(msg lexv2.PlainText) lexv2.Message { return msg }

// FormatSSML strips markup so the message reads as plain text.
func (SMSChannel) FormatSSML(msg lexv2.SSML) lexv2.Message {
	text := ssmlTags.ReplaceAllString(msg.Content, "")
	return lexv2.PlainText{Content: strings.TrimSpace(text)}
}

// FormatCustomPayload replaces a payload that carries a "text" or
// "message" field with the plain text it holds.
func (SMSChannel) FormatCustomPayload(msg lexv2.CustomPayload) lexv2.Message {
	if text, ok := payloadText(msg); ok {
		return lexv2.PlainText{Content: text}
	}
	return msg
}

// FormatImageCard flattens the card to a numbered list the user can answer
// by position or by option value. The returned options are the button
// values, in display order.
func (SMSChannel) FormatImageCard(card lexv2.ImageResponseCard) (lexv2.Message, []string) {
	parts := []string{card.Card.Title}
	if card.Card.Subtitle != "" {
		parts = append(parts, card.Card.Subtitle)
	}
	options := make([]string, 0, len(card.Card.Buttons))
	for i, btn := range card.Card.Buttons {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, btn.Text))
		options = append(options, btn.Value)
	}
	return lexv2.PlainText{Content: strings.Join(parts, "\n")}, options
}
