package lexful

import (
	"context"
	"strings"
	"unicode"
)

// StaticFetcher is an implementation of the Fetcher that maintains a static
// mapping of intent names to IntentHandler instances. This implementation is
// a highly simplified form for the purposes of reducing risk in operations.
// All dispatch happens within the process, there is no dynamic loading, and
// there is no "live update" feature which means there are less moving parts
// that might fail when routing a turn.
//
// The trade-off is that updates to, additions of, and removals of handlers
// must be accomplished by generating a new build and redeploying the bot.
type StaticFetcher struct {
	// Handlers is the underlying static map of intent names to handlers.
	// Keys may be the Lex intent names themselves or their snake_case
	// forms; Fetch resolves either.
	Handlers map[string]IntentHandler
}

// Fetch resolves the name using the internal mapping. The exact name is
// tried first, then its normalized registry key, so an intent recognized as
// "BookHotel" finds a handler registered as "book_hotel".
func (f *StaticFetcher) Fetch(ctx context.Context, name string) (IntentHandler, error) {
	if h, ok := f.Handlers[name]; ok {
		return h, nil
	}
	if h, ok := f.Handlers[IntentKey(name)]; ok {
		return h, nil
	}
	return nil, NotFoundError{Intent: name}
}

// IntentKey normalizes an intent name to its registry form. Names that
// already contain underscores are lowercased as-is; title-cased names
// become snake_case.
func IntentKey(name string) string {
	if strings.Contains(name, "_") {
		return strings.ToLower(name)
	}
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
