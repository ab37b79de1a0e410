// Package lexicon holds the word tables used to score review text.
//
// A Lexicon is built once and never mutated afterwards, so a single value
// can be shared by any number of goroutines. Extending a lexicon returns a
// new value and leaves the receiver untouched.
package lexicon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Class identifies one of the word tables.
type Class string

const (
	Positive    Class = "positive"
	Negative    Class = "negative"
	Negation    Class = "negation"
	Intensifier Class = "intensifier"
	Diminisher  Class = "diminisher"
)

// Classes lists every table in scan priority order.
var Classes = []Class{Negation, Intensifier, Diminisher, Positive, Negative}

// Lexicon is an immutable set of lowercase words grouped by class.
type Lexicon struct {
	sets map[Class]map[string]struct{}
}

// New builds a lexicon from word lists. Words are lowercased and trimmed.
// A word may belong to one class only.
func New(words map[Class][]string) (*Lexicon, error) {
	l := &Lexicon{sets: make(map[Class]map[string]struct{}, len(Classes))}
	for _, c := range Classes {
		l.sets[c] = make(map[string]struct{})
	}

	owner := make(map[string]Class)
	for _, c := range Classes {
		for _, w := range words[c] {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if prev, ok := owner[w]; ok && prev != c {
				return nil, fmt.Errorf("word %q is both %s and %s", w, prev, c)
			}
			owner[w] = c
			l.sets[c][w] = struct{}{}
		}
	}

	for c := range words {
		if _, ok := l.sets[c]; !ok {
			return nil, fmt.Errorf("unknown word class %q", c)
		}
	}

	return l, nil
}

// Default returns the built-in Russian restaurant review lexicon.
func Default() *Lexicon {
	l, err := New(defaultWords())
	if err != nil {
		// The built-in tables are covered by tests.
		panic(err)
	}
	return l
}

// Has reports whether word is in the given class. The word must already be
// lowercased.
func (l *Lexicon) Has(c Class, word string) bool {
	_, ok := l.sets[c][word]
	return ok
}

// Words returns the sorted contents of one class.
func (l *Lexicon) Words(c Class) []string {
	out := make([]string, 0, len(l.sets[c]))
	for w := range l.sets[c] {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of words in a class.
func (l *Lexicon) Len(c Class) int {
	return len(l.sets[c])
}

// Fingerprint identifies the lexicon contents. Two lexicons with the same
// words in the same classes share a fingerprint.
func (l *Lexicon) Fingerprint() string {
	h := sha256.New()
	for _, c := range Classes {
		h.Write([]byte(c))
		for _, w := range l.Words(c) {
			h.Write([]byte{0})
			h.Write([]byte(w))
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Extend returns a new lexicon with extra words merged in. The receiver is
// not modified.
func (l *Lexicon) Extend(extra map[Class][]string) (*Lexicon, error) {
	merged := make(map[Class][]string, len(Classes))
	for _, c := range Classes {
		merged[c] = append(l.Words(c), extra[c]...)
	}
	for c := range extra {
		if _, ok := merged[c]; !ok {
			return nil, fmt.Errorf("unknown word class %q", c)
		}
	}
	return New(merged)
}

func defaultWords() map[Class][]string {
	return map[Class][]string{
		Positive: {
			"вкусно", "вкусный", "вкусная", "вкусные", "вкусное",
			"отлично", "прекрасно", "восхитительно", "замечательно",
			"рекомендую", "советую", "супер", "класс", "шикарно",
			"свежий", "свежая", "свежее", "свежие",
			"качественный", "вежливый", "внимательный", "профессиональный",
			"уютно", "комфортно", "чисто", "быстро", "приятно",
			"великолепное", "великолепный", "великолепная", "великолепные",
			"невероятная", "невероятный",
		},
		Negative: {
			"плохо", "ужасно", "отвратительно", "кошмар",
			// Two words, so a single token never matches it.
			"не советую",
			"разочарован", "разочарована",
			"долго", "грязно", "грубый", "дорого", "невкусно",
			"испорченный", "холодный", "горький", "пересоленный",
			"медленно", "медленный",
		},
		Negation: {
			"не", "нет", "ни", "без", "никак", "нисколько",
			"отсутствует", "невозможно", "никакой", "ничего",
		},
		Intensifier: {
			"очень", "крайне", "совсем", "абсолютно", "полностью",
			"совершенно", "невероятно", "необычайно", "чрезвычайно", "сильно",
		},
		Diminisher: {
			"слегка", "немного", "чуть", "чуть-чуть", "довольно", "вроде",
		},
	}
}
