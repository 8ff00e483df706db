package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/watchdog/pkg/watchdog"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *watchdog.Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *watchdog.Client) *Handlers {
	return &Handlers{client: client}
}

// HandleClassifyTransaction asks the AVS for a signed verdict and checks the
// signature against the published signer.
func (h *Handlers) HandleClassifyTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := watchdog.ClassifyRequest{
		TokenAddress:       req.GetString("token_address", ""),
		FunctionSignature:  req.GetString("function_signature", ""),
		DeployerReputation: req.GetString("deployer_reputation", ""),
		LiquidityInfo:      req.GetString("liquidity_info", ""),
		CreationDate:       req.GetString("creation_date", ""),
		CodeAnalysis:       req.GetString("code_analysis", ""),
		RecentTxHistory:    req.GetString("recent_tx_history", ""),
	}
	if strings.TrimSpace(in.TokenAddress) == "" {
		return mcp.NewToolResultError("token_address is required"), nil
	}
	if strings.TrimSpace(in.FunctionSignature) == "" {
		return mcp.NewToolResultError("function_signature is required"), nil
	}

	res, err := h.client.Classify(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Classification failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Classification: %s\n", res.Classification)
	fmt.Fprintf(&sb, "Risk score: %d/100\n", res.RiskScore)
	fmt.Fprintf(&sb, "Signature: %s\n", res.Signature)

	signer, err := h.client.SignerAddress(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(&sb, "Attestation: not checked (%v)\n", err)
	case watchdog.VerifyAttestation(res, in, signer) != nil:
		fmt.Fprintf(&sb, "Attestation: INVALID for signer %s\n", signer.Hex())
	default:
		fmt.Fprintf(&sb, "Attestation: valid, signed by %s\n", signer.Hex())
	}

	if res.Malicious() {
		sb.WriteString("\nDo not interact with this token.")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleSimulateRug triggers a rug simulation.
func (h *Handlers) HandleSimulateRug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := req.GetString("token", "")
	if strings.TrimSpace(token) == "" {
		return mcp.NewToolResultError("token is required"), nil
	}

	status, err := h.client.Rug(ctx, token)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to trigger rug: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\nToken: %s", status, token)), nil
}

// HandleVerifyAttestation checks a signature offline.
func (h *Handlers) HandleVerifyAttestation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := watchdog.ClassifyRequest{
		TokenAddress:      req.GetString("token_address", ""),
		FunctionSignature: req.GetString("function_signature", ""),
	}
	res := &watchdog.ClassifyResult{
		Classification: req.GetString("classification", ""),
		RiskScore:      req.GetInt("risk_score", -1),
		Signature:      req.GetString("signature", ""),
	}
	if in.TokenAddress == "" || in.FunctionSignature == "" || res.Classification == "" || res.Signature == "" {
		return mcp.NewToolResultError("token_address, function_signature, classification and signature are required"), nil
	}
	if res.RiskScore < 0 || res.RiskScore > 100 {
		return mcp.NewToolResultError("risk_score must be between 0 and 100"), nil
	}

	var signer common.Address
	if s := req.GetString("signer", ""); s != "" {
		if !common.IsHexAddress(s) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid signer address %q", s)), nil
		}
		signer = common.HexToAddress(s)
	} else {
		addr, err := h.client.SignerAddress(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch signer: %v", err)), nil
		}
		signer = addr
	}

	if err := watchdog.VerifyAttestation(res, in, signer); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("INVALID: %v\nExpected signer: %s", err, signer.Hex())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("VALID: signed by %s", signer.Hex())), nil
}
