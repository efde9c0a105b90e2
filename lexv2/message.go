package lexv2

import (
	"encoding/json"
	"fmt"
)

// Message content types defined by the Lex V2 response contract.
const (
	ContentTypePlainText         = "PlainText"
	ContentTypeSSML              = "SSML"
	ContentTypeCustomPayload     = "CustomPayload"
	ContentTypeImageResponseCard = "ImageResponseCard"
)

// Message is one element of a response's messages array. The concrete type
// determines the contentType written to the wire.
type Message interface {
	ContentType() string
}

// Messages is the ordered list of messages in a response. It implements the
// JSON discriminator handling for the polymorphic wire format.
type Messages []Message

// PlainText is a plain text message.
type PlainText struct {
	Content string
}

// ContentType identifies the wire content type.
func (PlainText) ContentType() string { return ContentTypePlainText }

// SSML is a speech-markup message for voice channels.
type SSML struct {
	Content string
}

// ContentType identifies the wire content type.
func (SSML) ContentType() string { return ContentTypeSSML }

// CustomPayload carries an opaque, channel-defined payload. Content is
// usually a JSON document but Lex treats it as a string.
type CustomPayload struct {
	Content string
}

// ContentType identifies the wire content type.
func (CustomPayload) ContentType() string { return ContentTypeCustomPayload }

// ImageResponseCard is a rich card with optional image and buttons.
type ImageResponseCard struct {
	Card ResponseCard
}

// ContentType identifies the wire content type.
func (ImageResponseCard) ContentType() string { return ContentTypeImageResponseCard }

// ResponseCard is the body of an ImageResponseCard message.
type ResponseCard struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is a tappable option on a response card. Text is shown to the user,
// Value is what Lex receives when the button is pressed.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// NewButton builds a button whose display text doubles as its value.
func NewButton(text string) Button {
	return Button{Text: text, Value: text}
}

// NewImageResponseCard builds a card message from a title and buttons.
func NewImageResponseCard(title string, subtitle string, buttons ...Button) ImageResponseCard {
	return ImageResponseCard{Card: ResponseCard{
		Title:    title,
		Subtitle: subtitle,
		Buttons:  buttons,
	}}
}

// wireMessage is the flat JSON shape shared by every message kind.
type wireMessage struct {
	ContentType       string        `json:"contentType"`
	Content           string        `json:"content,omitempty"`
	ImageResponseCard *ResponseCard `json:"imageResponseCard,omitempty"`
}

// MarshalJSON writes the discriminated wire form.
func (m PlainText) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{ContentType: ContentTypePlainText, Content: m.Content})
}

// MarshalJSON writes the discriminated wire form.
func (m SSML) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{ContentType: ContentTypeSSML, Content: m.Content})
}

// MarshalJSON writes the discriminated wire form.
func (m CustomPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{ContentType: ContentTypeCustomPayload, Content: m.Content})
}

// MarshalJSON writes the discriminated wire form.
func (m ImageResponseCard) MarshalJSON() ([]byte, error) {
	card := m.Card
	return json.Marshal(wireMessage{ContentType: ContentTypeImageResponseCard, ImageResponseCard: &card})
}

// UnmarshalJSON decodes a message array, selecting the concrete type from
// each element's contentType. A contentType outside the service contract is
// an error rather than a silent skip.
func (ms *Messages) UnmarshalJSON(b []byte) error {
	var wire []wireMessage
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	out := make(Messages, 0, len(wire))
	for _, w := range wire {
		switch w.ContentType {
		case ContentTypePlainText:
			out = append(out, PlainText{Content: w.Content})
		case ContentTypeSSML:
			out = append(out, SSML{Content: w.Content})
		case ContentTypeCustomPayload:
			out = append(out, CustomPayload{Content: w.Content})
		case ContentTypeImageResponseCard:
			var card ResponseCard
			if w.ImageResponseCard != nil {
				card = *w.ImageResponseCard
				if card.Buttons != nil {
					card.Buttons = append([]Button(nil), card.Buttons...)
				}
			}
			out = append(out, ImageResponseCard{Card: card})
		default:
			return fmt.Errorf("lexv2: unknown message contentType %q", w.ContentType)
		}
	}
	*ms = out
	return nil
}

// Clone returns a deep copy of the message list.
func (ms Messages) Clone() Messages {
	if ms == nil {
		return nil
	}
	out := make(Messages, len(ms))
	for i, m := range ms {
		switch v := m.(type) {
		case ImageResponseCard:
			card := v.Card
			if card.Buttons != nil {
				card.Buttons = append([]Button(nil), card.Buttons...)
			}
			out[i] = ImageResponseCard{Card: card}
		default:
			// Remaining kinds are plain value types.
			out[i] = m
		}
	}
	return out
}
