package risk

import "fmt"

// Engine classifies scores against a fixed threshold.
type Engine struct {
	threshold Threshold
}

// NewEngine creates a classification engine for the given threshold.
// Thresholds outside [0, 100] are clamped.
func NewEngine(t Threshold) Engine {
	return Engine{threshold: Threshold(Clamp(int(t)))}
}

// Threshold returns the engine's threshold.
func (e Engine) Threshold() Threshold {
	return e.threshold
}

// Classify derives the verdict for score. The score is clamped first so an
// out-of-range input never flips the verdict.
func (e Engine) Classify(score Score) Verdict {
	return Classify(Clamp(int(score)), e.threshold)
}

func (e Engine) String() string {
	return fmt.Sprintf("score > %d", e.threshold)
}
