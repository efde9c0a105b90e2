package channels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexful/lexful/lexv2"
)

// Channel names understood by ForName.
const (
	NameLex = "lex"
	NameSMS = "sms"
)

// PlatformAttribute is the request attribute messaging connectors set to
// identify the platform a turn arrived from.
const PlatformAttribute = "x-amz-lex:channels:platform"

// unsupportedMessageText is the stand-in for message types a channel
// cannot render on the direct formatting path.
const unsupportedMessageText = "Unsupported message type"

// Channel formats individual messages for one delivery platform.
// FormatImageCard additionally returns the option values the rendering
// offered to the user, for channels that flatten cards to text.
// FormatMessage dispatches a single message of any type, rendering
// image cards as text; types the channel does not understand come back
// as a plain-text notice rather than an error.
type Channel interface {
	Name() string
	FormatMessage(msg lexv2.Message) lexv2.Message
	FormatPlainText(msg lexv2.PlainText) lexv2.Message
	FormatSSML(msg lexv2.SSML) lexv2.Message
	FormatCustomPayload(msg lexv2.CustomPayload) lexv2.Message
	FormatImageCard(card lexv2.ImageResponseCard) (lexv2.Message, []string)
}

// FormatMessages renders each message through the channel's
// FormatMessage.
func FormatMessages(ch Channel, msgs lexv2.Messages) lexv2.Messages {
	out := make(lexv2.Messages, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, ch.FormatMessage(msg))
	}
	return out
}

// ForName returns the channel registered under the given name. Unknown
// names fall back to the Lex channel.
func ForName(name string) Channel {
	switch strings.ToLower(name) {
	case NameSMS:
		return SMSChannel{}
	default:
		return LexChannel{}
	}
}

// ChannelName derives the channel name from the platform request
// attribute. It returns "" when the event carries no recognizable
// platform, leaving the choice to the caller's configured default.
func ChannelName(req *lexv2.Request) string {
	platform := strings.ToLower(req.RequestAttributes[PlatformAttribute])
	switch {
	case platform == "":
		return ""
	case strings.Contains(platform, NameSMS) || strings.Contains(platform, "twilio"):
		return NameSMS
	default:
		return NameLex
	}
}

// payloadText extracts display text from a custom payload whose content is
// a JSON object carrying a "text" or "message" field.
func payloadText(msg lexv2.CustomPayload) (string, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(msg.Content), &obj); err != nil {
		return "", false
	}
	if v, ok := obj["text"]; ok {
		return fmt.Sprintf("%v", v), true
	}
	if v, ok := obj["message"]; ok {
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}
