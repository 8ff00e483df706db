package oracle

import (
	"context"
	"strings"

	"github.com/mbd888/watchdog/internal/risk"
)

const (
	// dangerousFunctionWeight applies to calls that can drain or dilute a pool.
	dangerousFunctionWeight = 70
	// freshTokenWeight applies to tokens whose address marks them as new.
	freshTokenWeight = 30
)

var dangerousFunctions = map[string]bool{
	"mint":            true,
	"removeLiquidity": true,
}

// Heuristic scores transactions with fixed additive rules.
type Heuristic struct {
	threshold risk.Threshold
}

// NewHeuristic creates the rule-based oracle.
func NewHeuristic(threshold risk.Threshold) *Heuristic {
	return &Heuristic{threshold: threshold}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Threshold() risk.Threshold { return h.threshold }

// Score adds 70 for mint/removeLiquidity and 30 when the token address
// contains "new" in any letter case.
func (h *Heuristic) Score(_ context.Context, dc risk.DecisionContext) risk.Score {
	raw := 0
	if dangerousFunctions[dc.FunctionSignature] {
		raw += dangerousFunctionWeight
	}
	if strings.Contains(strings.ToLower(dc.TokenAddress), "new") {
		raw += freshTokenWeight
	}
	return risk.Clamp(raw)
}
