package disambiguation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lexful/lexful/dialog"
	"github.com/lexful/lexful/lexv2"
	"github.com/lexful/lexful/messages"
)

// CandidatesAttribute stores the candidates of an open disambiguation
// question between turns, as JSON.
const CandidatesAttribute = "disambiguation_candidates"

// Message keys and their fallbacks for the clarification question.
const (
	defaultPromptKey = "disambiguation.prompt"
	defaultTitleKey  = "disambiguation.title"

	defaultPrompt = "I'm not quite sure what you meant."
	defaultTitle  = "Did you mean one of these?"
)

// Handler asks clarification questions and applies the answers.
type Handler struct {
	conf Config
}

// NewHandler returns a handler using the given configuration.
func NewHandler(conf Config) *Handler {
	return &Handler{conf: conf}
}

// Disambiguate builds the clarification question for the candidates: an
// elicit-intent response carrying a prompt and a card with one button per
// candidate. The candidates are stashed in the session so the next turn's
// reply can be resolved against them.
func (h *Handler) Disambiguate(req *lexv2.Request, cands []Candidate) *lexv2.Response {
	prompt := messages.GetOrDefault(h.promptKey(), defaultPrompt)
	title := messages.GetOrDefault(h.titleKey(), defaultTitle)

	buttons := make([]lexv2.Button, 0, len(cands))
	for _, c := range cands {
		buttons = append(buttons, lexv2.Button{Text: c.Label, Value: c.IntentName})
	}
	card := lexv2.NewImageResponseCard(title, "", buttons...)

	resp := dialog.ElicitIntent(req, lexv2.PlainText{Content: prompt}, card)
	encoded, _ := json.Marshal(cands)
	if resp.SessionState.SessionAttributes == nil {
		resp.SessionState.SessionAttributes = make(map[string]string, 1)
	}
	resp.SessionState.SessionAttributes[CandidatesAttribute] = string(encoded)
	return resp
}

// ApplySelection resolves a reply to a previous clarification question.
// Replies match a candidate by intent name, by label, or by 1-based
// position. On a match the request's intent is rewritten to the selection
// so regular dispatch runs the chosen intent; the stored candidates are
// cleared either way, so an unmatched reply simply proceeds as Lex
// understood it.
func (h *Handler) ApplySelection(req *lexv2.Request) (string, bool) {
	raw, ok := dialog.Attr(req, CandidatesAttribute)
	if !ok || raw == "" {
		return "", false
	}
	dialog.DeleteAttr(req, CandidatesAttribute)

	var cands []Candidate
	if err := json.Unmarshal([]byte(raw), &cands); err != nil || len(cands) == 0 {
		return "", false
	}
	input := strings.TrimSpace(req.InputTranscript)
	if input == "" {
		return "", false
	}

	for _, c := range cands {
		if strings.EqualFold(input, c.IntentName) || strings.EqualFold(input, c.Label) {
			h.selectCandidate(req, c)
			return c.IntentName, true
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(cands) {
		c := cands[n-1]
		h.selectCandidate(req, c)
		return c.IntentName, true
	}
	return "", false
}

// selectCandidate restarts the dialog on the chosen intent. Slots from the
// misrecognized intent do not carry over.
func (h *Handler) selectCandidate(req *lexv2.Request, c Candidate) {
	req.SessionState.Intent = lexv2.Intent{
		Name:  c.IntentName,
		State: lexv2.IntentStateInProgress,
	}
	req.SessionState.DialogAction = nil
}

func (h *Handler) promptKey() string {
	if h.conf.PromptKey != "" {
		return h.conf.PromptKey
	}
	return defaultPromptKey
}

func (h *Handler) titleKey() string {
	if h.conf.CardTitleKey != "" {
		return h.conf.CardTitleKey
	}
	return defaultTitleKey
}
