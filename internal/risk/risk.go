// Package risk turns transaction metadata into a decision context and maps
// risk scores onto a binary verdict.
//
// Scores are integers in [0, 100]. A verdict is MALICIOUS only when the score
// is strictly greater than the threshold of the scoring strategy that
// produced it; the threshold belongs to the deployment, never to a request.
package risk

// Score is a risk score in [0, 100].
type Score int

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// Clamp caps a raw oracle output into [MinScore, MaxScore].
func Clamp(raw int) Score {
	if raw < int(MinScore) {
		return MinScore
	}
	if raw > int(MaxScore) {
		return MaxScore
	}
	return Score(raw)
}

// Verdict is the binary classification of a transaction.
type Verdict string

const (
	VerdictSafe      Verdict = "SAFE"
	VerdictMalicious Verdict = "MALICIOUS"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictSafe || v == VerdictMalicious
}

// Threshold is the strict upper bound a score must exceed to be MALICIOUS.
type Threshold int

// Default thresholds for the two scoring strategies.
const (
	HeuristicThreshold Threshold = 50
	ExternalThreshold  Threshold = 70
)

// Classify returns MALICIOUS iff score > threshold.
func Classify(score Score, threshold Threshold) Verdict {
	if int(score) > int(threshold) {
		return VerdictMalicious
	}
	return VerdictSafe
}
