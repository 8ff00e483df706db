package oracle

import (
	"strings"
	"text/template"

	"github.com/mbd888/watchdog/internal/risk"
)

// SystemPrompt frames the model as a terse auditor.
const SystemPrompt = "You are a smart-contract security auditor. Reply with a single integer from 0 to 100 and nothing else."

var auditTemplate = template.Must(template.New("audit").Parse(`Assess how likely the following transaction is a rug pull or other malicious action.

Token address: {{.TokenAddress}}
Function called: {{.FunctionSignature}}
Deployer reputation: {{.DeployerReputation}}
Liquidity: {{.LiquidityInfo}}
Token creation date: {{.CreationDate}}
Code analysis: {{.CodeAnalysis}}
Recent transactions: {{.RecentTxHistory}}

Return only the risk score as a bare integer between 0 (safe) and 100 (certainly malicious).`))

// RenderPrompt renders the audit prompt for a decision context.
func RenderPrompt(dc risk.DecisionContext) string {
	var b strings.Builder
	// The template only reads string fields, so execution cannot fail.
	_ = auditTemplate.Execute(&b, dc)
	return b.String()
}
