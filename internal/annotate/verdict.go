package annotate

// Verdict is the overall recommendation derived from a sentiment score.
// The string value is what gets stored next to the review.
type Verdict string

const (
	VerdictStronglyRecommend    Verdict = "Настоятельно рекомендую"
	VerdictRecommend            Verdict = "Рекомендую к посещению"
	VerdictPositive             Verdict = "Положительное впечатление"
	VerdictNeutral              Verdict = "Нейтральное впечатление"
	VerdictNegative             Verdict = "Отрицательное впечатление"
	VerdictStronglyNotRecommend Verdict = "Категорически не рекомендую"
)

// verdictThreshold is the inclusive lower bound of a verdict bracket.
type verdictThreshold struct {
	min     float64
	verdict Verdict
}

// Evaluated top-down, first match wins.
var verdictThresholds = []verdictThreshold{
	{4, VerdictStronglyRecommend},
	{2, VerdictRecommend},
	{0.5, VerdictPositive},
	{-0.5, VerdictNeutral},
	{-2, VerdictNegative},
}

var verdictLabels = map[Verdict]string{
	VerdictStronglyRecommend:    "Strongly recommend",
	VerdictRecommend:            "Recommend a visit",
	VerdictPositive:             "Positive impression",
	VerdictNeutral:              "Neutral impression",
	VerdictNegative:             "Negative impression",
	VerdictStronglyNotRecommend: "Strongly do not recommend",
}

// Verdicts lists all verdicts from best to worst.
var Verdicts = []Verdict{
	VerdictStronglyRecommend,
	VerdictRecommend,
	VerdictPositive,
	VerdictNeutral,
	VerdictNegative,
	VerdictStronglyNotRecommend,
}

// Classify maps a sentiment score to a verdict.
func Classify(score float64) Verdict {
	for _, t := range verdictThresholds {
		if score >= t.min {
			return t.verdict
		}
	}
	// Also reached for NaN, which compares false against every bound.
	return VerdictStronglyNotRecommend
}

// English returns the English display label.
func (v Verdict) English() string {
	if label, ok := verdictLabels[v]; ok {
		return label
	}
	return string(v)
}

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	_, ok := verdictLabels[v]
	return ok
}
