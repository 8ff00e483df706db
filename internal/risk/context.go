package risk

import (
	"errors"
	"strings"
)

// Defaults substituted for absent optional fields.
const (
	DefaultDeployerReputation = "No data"
	DefaultLiquidityInfo      = "Unknown"
	DefaultCreationDate       = "Unknown"
	DefaultCodeAnalysis       = "No code analysis provided"
	DefaultRecentTxHistory    = "No recent tx info"
)

// ErrMissingField is wrapped by MissingFieldsError.
var ErrMissingField = errors.New("risk: missing required field")

// RawRequest is the untrusted body of a classification request.
type RawRequest struct {
	TokenAddress       string `json:"tokenAddress"`
	FunctionSignature  string `json:"functionSignature"`
	DeployerReputation string `json:"deployerReputation,omitempty"`
	LiquidityInfo      string `json:"liquidityInfo,omitempty"`
	CreationDate       string `json:"creationDate,omitempty"`
	CodeAnalysis       string `json:"codeAnalysis,omitempty"`
	RecentTxHistory    string `json:"recentTxHistory,omitempty"`
}

// DecisionContext is the validated, defaulted input to a scoring oracle.
// It is built once per request and never mutated.
type DecisionContext struct {
	TokenAddress       string
	FunctionSignature  string
	DeployerReputation string
	LiquidityInfo      string
	CreationDate       string
	CodeAnalysis       string
	RecentTxHistory    string
}

// MissingFieldsError lists every required field absent from a request.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingField
}

// BuildContext validates the required fields and fills optional ones with
// their defaults. Whitespace-only values count as absent. Present values are
// kept byte-for-byte since they end up in the signed statement.
func BuildContext(req RawRequest) (DecisionContext, error) {
	var missing []string
	if blank(req.TokenAddress) {
		missing = append(missing, "tokenAddress")
	}
	if blank(req.FunctionSignature) {
		missing = append(missing, "functionSignature")
	}
	if len(missing) > 0 {
		return DecisionContext{}, &MissingFieldsError{Fields: missing}
	}

	return DecisionContext{
		TokenAddress:       req.TokenAddress,
		FunctionSignature:  req.FunctionSignature,
		DeployerReputation: orDefault(req.DeployerReputation, DefaultDeployerReputation),
		LiquidityInfo:      orDefault(req.LiquidityInfo, DefaultLiquidityInfo),
		CreationDate:       orDefault(req.CreationDate, DefaultCreationDate),
		CodeAnalysis:       orDefault(req.CodeAnalysis, DefaultCodeAnalysis),
		RecentTxHistory:    orDefault(req.RecentTxHistory, DefaultRecentTxHistory),
	}, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func orDefault(s, def string) string {
	if blank(s) {
		return def
	}
	return s
}
