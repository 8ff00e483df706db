package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the watchdog MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolClassifyTransaction = mcp.NewTool("classify_transaction",
	mcp.WithDescription(
		"Classify a pending token transaction as SAFE or MALICIOUS. "+
			"Returns a risk score from 0 to 100 and a signed attestation that can be verified on-chain. "+
			"Use this before interacting with an unfamiliar token."),
	mcp.WithString("token_address",
		mcp.Required(),
		mcp.Description("Address of the token contract (e.g. '0x1234...')")),
	mcp.WithString("function_signature",
		mcp.Required(),
		mcp.Description("Function being called (e.g. 'mint', 'removeLiquidity', 'transfer')")),
	mcp.WithString("deployer_reputation",
		mcp.Description("What is known about the deployer")),
	mcp.WithString("liquidity_info",
		mcp.Description("Liquidity pool details, e.g. locked or unlocked")),
	mcp.WithString("creation_date",
		mcp.Description("When the token was created")),
	mcp.WithString("code_analysis",
		mcp.Description("Findings from static analysis of the contract")),
	mcp.WithString("recent_tx_history",
		mcp.Description("Notable recent transactions")),
)

var ToolSimulateRug = mcp.NewTool("simulate_rug",
	mcp.WithDescription(
		"Trigger a simulated rug pull for a token on the mempool simulator. "+
			"Every connected subscriber receives a RugAttempt event followed by a FrontRunSuccess event."),
	mcp.WithString("token",
		mcp.Required(),
		mcp.Description("Token address the simulated rug targets")),
)

var ToolVerifyAttestation = mcp.NewTool("verify_attestation",
	mcp.WithDescription(
		"Check that a classification was signed by the watchdog. "+
			"Recovers the signer from the signature and compares it with the expected address."),
	mcp.WithString("token_address",
		mcp.Required(),
		mcp.Description("Token address from the classification request")),
	mcp.WithString("function_signature",
		mcp.Required(),
		mcp.Description("Function signature from the classification request")),
	mcp.WithString("classification",
		mcp.Required(),
		mcp.Description("Classification returned by the watchdog"),
		mcp.Enum("SAFE", "MALICIOUS")),
	mcp.WithNumber("risk_score",
		mcp.Required(),
		mcp.Description("Risk score returned by the watchdog (0-100)")),
	mcp.WithString("signature",
		mcp.Required(),
		mcp.Description("Hex signature returned by the watchdog")),
	mcp.WithString("signer",
		mcp.Description("Expected signer address. If omitted, the watchdog's published signer is used.")),
)
