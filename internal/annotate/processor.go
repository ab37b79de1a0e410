// Package annotate turns free-form restaurant review text into a sentiment
// score, a verdict and a set of topical tags.
//
// All rules are fixed tables over lowercased text; there is no model and
// no state between calls. A Processor is safe for concurrent use.
package annotate

import "github.com/ppiankov/restomaps/internal/lexicon"

// Result is the annotation of a single review. UserRating is carried
// through from the input and never used in scoring.
type Result struct {
	Verdict        Verdict `json:"processed_verdict"`
	Tags           []Tag   `json:"processed_tags"`
	SentimentScore float64 `json:"sentiment_score"`
	UserRating     *int    `json:"user_rating"`
}

// Processor combines the scorer, the verdict classifier and the tag
// extractor.
type Processor struct {
	scorer *Scorer
	tags   *TagExtractor
}

// NewProcessor creates a processor. A nil lexicon selects lexicon.Default.
func NewProcessor(lex *lexicon.Lexicon) *Processor {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Processor{
		scorer: NewScorer(lex),
		tags:   NewTagExtractor(),
	}
}

// Process annotates one review. It never fails: text without any known
// words yields a zero score, a neutral verdict and no tags.
func (p *Processor) Process(text string, rating *int) Result {
	score := p.scorer.Score(text)
	return Result{
		Verdict:        Classify(score),
		Tags:           p.tags.Extract(text),
		SentimentScore: score,
		UserRating:     rating,
	}
}

// Explain returns the score breakdown for text.
func (p *Processor) Explain(text string) Breakdown {
	return p.scorer.Explain(text)
}

// EnglishTags returns the English labels of the result's tags, in the same
// order.
func (r Result) EnglishTags() []string {
	out := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		out[i] = t.English()
	}
	return out
}
