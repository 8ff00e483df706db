package watchdog

import "fmt"

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	TokenAddress       string `json:"tokenAddress"`
	FunctionSignature  string `json:"functionSignature"`
	DeployerReputation string `json:"deployerReputation,omitempty"`
	LiquidityInfo      string `json:"liquidityInfo,omitempty"`
	CreationDate       string `json:"creationDate,omitempty"`
	CodeAnalysis       string `json:"codeAnalysis,omitempty"`
	RecentTxHistory    string `json:"recentTxHistory,omitempty"`
}

// ClassifyResult is a signed verdict.
type ClassifyResult struct {
	Classification string `json:"classification"`
	RiskScore      int    `json:"riskScore"`
	Signature      string `json:"signature"`
}

// Malicious reports whether the verdict is MALICIOUS.
func (r *ClassifyResult) Malicious() bool {
	return r.Classification == "MALICIOUS"
}

// Event is one frame from the mempool stream.
type Event struct {
	Event   string `json:"event"`
	TxHash  string `json:"txHash,omitempty"`
	TxFrom  string `json:"txFrom,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// Filter narrows a subscription. Empty lists match everything.
type Filter struct {
	Events []string `json:"events,omitempty"`
	Tokens []string `json:"tokens,omitempty"`
}

// APIError is a non-2xx answer from either service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("watchdog: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("watchdog: %d %s", e.StatusCode, e.Code)
}
