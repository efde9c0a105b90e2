package main

// This example demonstrates a small bot built on the StaticFetcher: a
// greeting, a slot-driven booking flow that finishes through a callback
// handler, the exit-feedback flow, and a fallback. Run it and drive it
// locally:
//
//	curl --request POST --data @event.json localhost:8080/bot/invocations

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"os"

	settings "github.com/asecurityteam/settings/v2"
	"github.com/joho/godotenv"

	lexful "github.com/lexful/lexful"
	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/lexv2"
	"github.com/lexful/lexful/messages"
)

//go:embed messages.yaml messages_en_US.yaml
var messageFiles embed.FS

func greeting(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	text := messages.GetOrDefault("greeting.welcome", "Hi! How can I help?")
	return dialog.ElicitIntent(req, lexv2.PlainText{Content: text}), nil
}

// bookTrip elicits the destination, then confirms and hands off to the
// receipt handler through the callback mechanism.
func bookTrip(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	city := dialog.GetSlotValue(req, "City")
	if city == "" {
		prompt := messages.GetOrDefault("booking.city", "Where would you like to go?")
		return dialog.ElicitSlot(req, "City", lexv2.PlainText{Content: prompt}), nil
	}
	dialog.SetAttr(req, "booked_city", city)
	resp := dialog.Close(req, lexv2.PlainText{Content: fmt.Sprintf("Your trip to %s is booked.", city)})
	dialog.SetCallback(resp, "send_receipt")
	return resp, nil
}

func sendReceipt(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	city, _ := dialog.Attr(req, "booked_city")
	return dialog.Close(req, lexv2.PlainText{
		Content: fmt.Sprintf("A receipt for your %s trip is on its way to your inbox.", city),
	}), nil
}

func exitFeedback(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	text := messages.GetOrDefault("exit.thanks", "Thanks for the feedback. Goodbye!")
	return dialog.Close(req, lexv2.PlainText{Content: text}), nil
}

func fallback(_ context.Context, req *lexv2.Request) (*lexv2.Response, error) {
	text := messages.GetOrDefault("fallback", "Sorry, I didn't get that. You can ask me to book a trip.")
	return dialog.ElicitIntent(req, lexv2.PlainText{Content: text}), nil
}

func main() {
	_ = godotenv.Load()
	messages.SetSource(messageFiles)

	handlers := map[string]lexful.IntentHandler{
		// The keys of this map are intent registry names. Lex intent names
		// resolve to them directly or through their snake_case form, so
		// "BookTrip" finds "book_trip".
		"greeting":               lexful.IntentFunc(greeting),
		"book_trip":              lexful.IntentFunc(bookTrip),
		"send_receipt":           lexful.IntentFunc(sendReceipt),
		"common_exit_feedback":   lexful.IntentFunc(exitFeedback),
		lexv2.FallbackIntentName: lexful.IntentFunc(fallback),
	}

	// Handle the -h flag and print settings.
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.Usage = func() {}
	err := fs.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		fmt.Println(lexful.Help())
		return
	}

	source, err := settings.NewEnvSource(os.Environ())
	if err != nil {
		panic(err.Error())
	}
	bot := lexful.NewBot(&lexful.StaticFetcher{Handlers: handlers}, lexful.DefaultConfig())
	if err := lexful.Start(context.Background(), source, bot); err != nil {
		panic(err.Error())
	}
}
