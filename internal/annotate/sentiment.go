package annotate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/restomaps/internal/lexicon"
)

const (
	polarityWeight    = 1.5
	intensifierFactor = 2.0
	diminisherFactor  = 0.5
	phraseBonus       = 3.0
)

// negationPattern is a fixed penalty applied when a regular expression
// matches the lowercased review. Penalties are additive and each pattern
// fires at most once.
type negationPattern struct {
	re      *regexp.Regexp
	penalty float64
}

// RE2 classes \w and \s are ASCII-only, so word characters are spelled out
// to cover Cyrillic. spaceRun matches the same runes as isSpace.
const (
	wordChars = `[\p{L}\p{N}_]`
	spaceRun  = `[\s\p{Z}\v\x{85}\x{1c}-\x{1f}]+`
)

// isSpace reports whether r separates tokens: Unicode white space plus the
// ASCII file, group, record and unit separators.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

var negationPatterns = []negationPattern{
	{regexp.MustCompile(`не` + spaceRun + wordChars + `+но`), -2.0},
	{regexp.MustCompile(`не` + spaceRun + wordChars + `+ый`), -2.0},
	{regexp.MustCompile(`не` + spaceRun + wordChars + `+ая`), -2.0},
	{regexp.MustCompile(`не` + spaceRun + wordChars + `+ое`), -2.0},
	{regexp.MustCompile(`не` + spaceRun + wordChars + `+ые`), -2.0},
	{regexp.MustCompile(`очень` + spaceRun + `не`), -3.0},
	{regexp.MustCompile(`слишком` + spaceRun + `не`), -2.5},
	{regexp.MustCompile(`крайне` + spaceRun + `не`), -3.0},
}

var strongPositivePhrases = []string{
	"обязательно вернусь",
	"рекомендую всем",
	"превосходно",
	"восхитительно",
}

var strongNegativePhrases = []string{
	"никому не рекомендую",
	"ужасное",
	"кошмар",
	"отвратительно",
	"больше не пойду",
}

// Breakdown shows how a sentiment score was assembled.
type Breakdown struct {
	Tokens   float64 `json:"tokens"`   // word polarity scan
	Patterns float64 `json:"patterns"` // negation pattern penalties
	Phrases  float64 `json:"phrases"`  // strong phrase bonus/penalty
	Total    float64 `json:"total"`
}

// Scorer computes a sentiment score for review text.
type Scorer struct {
	lex *lexicon.Lexicon
}

// NewScorer creates a scorer over the given lexicon.
func NewScorer(lex *lexicon.Lexicon) *Scorer {
	return &Scorer{lex: lex}
}

// Score returns the sentiment score of text.
func (s *Scorer) Score(text string) float64 {
	return s.Explain(text).Total
}

// Explain returns the score together with its components.
func (s *Scorer) Explain(text string) Breakdown {
	lower := strings.ToLower(text)

	b := Breakdown{
		Tokens:   s.tokenScore(lower),
		Patterns: patternPenalty(lower),
		Phrases:  phraseScore(lower),
	}
	b.Total = b.Tokens + b.Phrases + b.Patterns
	return b
}

// tokenScore scans whitespace tokens left to right. A negation flips the
// next polarity word and expires after one unmatched token. An intensifier
// or diminisher lasts until the next polarity word, however far away.
func (s *Scorer) tokenScore(lower string) float64 {
	var total float64
	negated := false
	strength := 1.0

	for _, tok := range strings.FieldsFunc(lower, isSpace) {
		switch {
		case s.lex.Has(lexicon.Negation, tok):
			negated = true
		case s.lex.Has(lexicon.Intensifier, tok):
			strength = intensifierFactor
		case s.lex.Has(lexicon.Diminisher, tok):
			strength = diminisherFactor
		case s.lex.Has(lexicon.Positive, tok):
			total += polarityWeight * strength * sign(!negated)
			negated, strength = false, 1.0
		case s.lex.Has(lexicon.Negative, tok):
			total += polarityWeight * strength * sign(negated)
			negated, strength = false, 1.0
		default:
			negated = false
		}
	}

	return total
}

func patternPenalty(lower string) float64 {
	var total float64
	for _, p := range negationPatterns {
		if p.re.MatchString(lower) {
			total += p.penalty
		}
	}
	return total
}

func phraseScore(lower string) float64 {
	var total float64
	if containsAny(lower, strongPositivePhrases) {
		total += phraseBonus
	}
	if containsAny(lower, strongNegativePhrases) {
		total -= phraseBonus
	}
	return total
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
