package disambiguation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lexful/lexful/lexv2"
)

// Reasons reported on a positive analysis.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonSimilarScores = "similar_scores"
)

// Config tunes when and how disambiguation happens.
type Config struct {
	// MinConfidence is the score below which the top interpretation is
	// doubted even when it has no close rival.
	MinConfidence float64
	// SimilarityDelta doubts the top interpretation when the runner-up
	// scores within this distance of it.
	SimilarityDelta float64
	// MaxCandidates caps how many choices are offered.
	MaxCandidates int
	// PromptKey and CardTitleKey override the message keys used for the
	// clarification question.
	PromptKey    string
	CardTitleKey string
	// DisplayNames maps intent names to the labels shown to the user.
	// Intents without an entry get a label derived from their name.
	DisplayNames map[string]string
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.60,
		SimilarityDelta: 0.15,
		MaxCandidates:   3,
	}
}

// Candidate is one intent the user may have meant.
type Candidate struct {
	IntentName string  `json:"intent"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
}

// Result is the outcome of analyzing one turn.
type Result struct {
	ShouldDisambiguate bool
	Reason             string
	Candidates         []Candidate
}

// Analyzer decides whether a turn needs disambiguation.
type Analyzer struct {
	conf Config
}

// NewAnalyzer returns an analyzer using the given thresholds. Zero values
// are replaced with defaults.
func NewAnalyzer(conf Config) *Analyzer {
	def := DefaultConfig()
	if conf.MinConfidence <= 0 {
		conf.MinConfidence = def.MinConfidence
	}
	if conf.SimilarityDelta <= 0 {
		conf.SimilarityDelta = def.SimilarityDelta
	}
	if conf.MaxCandidates <= 0 {
		conf.MaxCandidates = def.MaxCandidates
	}
	return &Analyzer{conf: conf}
}

// Analyze inspects the scored interpretations of the request. It reports
// disambiguation when the best score falls below MinConfidence, or when the
// top two scores sit within SimilarityDelta of each other. Turns without
// scored interpretations never disambiguate.
func (a *Analyzer) Analyze(req *lexv2.Request) Result {
	cands := a.candidates(req)
	if len(cands) == 0 {
		return Result{}
	}

	var reason string
	switch {
	case cands[0].Score < a.conf.MinConfidence:
		reason = ReasonLowConfidence
	case len(cands) >= 2 && cands[0].Score-cands[1].Score < a.conf.SimilarityDelta:
		reason = ReasonSimilarScores
	default:
		return Result{}
	}

	if len(cands) > a.conf.MaxCandidates {
		cands = cands[:a.conf.MaxCandidates]
	}
	return Result{ShouldDisambiguate: true, Reason: reason, Candidates: cands}
}

// candidates filters the interpretations down to scored, named, non-fallback
// intents, best score first.
func (a *Analyzer) candidates(req *lexv2.Request) []Candidate {
	var cands []Candidate
	for _, interp := range req.Interpretations {
		if interp.Intent == nil || interp.NLUConfidence == nil {
			continue
		}
		name := interp.Intent.Name
		if name == "" || name == lexv2.FallbackIntentName {
			continue
		}
		cands = append(cands, Candidate{
			IntentName: name,
			Label:      a.label(name),
			Score:      interp.NLUConfidence.Score,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	return cands
}

func (a *Analyzer) label(intentName string) string {
	if label, ok := a.conf.DisplayNames[intentName]; ok {
		return label
	}
	return displayLabel(intentName)
}

// displayLabel derives a human-readable label from an intent name, so
// "BookHotel" and "Common_Exit_Feedback" read as words.
func displayLabel(name string) string {
	var b strings.Builder
	var prev rune
	for _, r := range name {
		if r == '_' {
			r = ' '
		} else if unicode.IsUpper(r) && prev != 0 && prev != ' ' && !unicode.IsUpper(prev) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.TrimSpace(b.String())
}
