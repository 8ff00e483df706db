package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/mbd888/watchdog/pkg/watchdog"
)

func newClassifyCmd() *cobra.Command {
	var (
		req    watchdog.ClassifyRequest
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "classify TOKEN_ADDRESS FUNCTION_SIGNATURE",
		Short: "Classify a transaction and print the signed verdict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TokenAddress = args[0]
			req.FunctionSignature = args[1]

			c := getClient(cmd)
			res, err := c.Classify(cmd.Context(), req)
			if err != nil {
				return err
			}

			var signer common.Address
			if verify {
				if signer, err = c.SignerAddress(cmd.Context()); err != nil {
					return err
				}
				if err := watchdog.VerifyAttestation(res, req, signer); err != nil {
					return fmt.Errorf("attestation does not verify against %s: %w", signer.Hex(), err)
				}
			}

			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "classification: %s\n", res.Classification)
			fmt.Fprintf(out, "risk score:     %d\n", res.RiskScore)
			fmt.Fprintf(out, "signature:      %s\n", res.Signature)
			if verify {
				fmt.Fprintf(out, "signer:         %s (verified)\n", signer.Hex())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.DeployerReputation, "deployer-reputation", "", "What is known about the deployer")
	cmd.Flags().StringVar(&req.LiquidityInfo, "liquidity-info", "", "Liquidity pool details")
	cmd.Flags().StringVar(&req.CreationDate, "creation-date", "", "Token creation date")
	cmd.Flags().StringVar(&req.CodeAnalysis, "code-analysis", "", "Static analysis findings")
	cmd.Flags().StringVar(&req.RecentTxHistory, "recent-tx-history", "", "Notable recent transactions")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the attestation against the published signer")
	return cmd
}

func newRugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rug TOKEN",
		Short: "Trigger a simulated rug pull for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := getClient(cmd).Rug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]string{"status": status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		filter    watchdog.Filter
		reconnect int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream mempool events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getClient(cmd)
			c.OnMalformed = func(frame []byte, err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "dropped malformed frame: %v\n", err)
			}

			var f *watchdog.Filter
			if len(filter.Events) > 0 || len(filter.Tokens) > 0 {
				f = &filter
			}

			out := cmd.OutOrStdout()
			asJSON := jsonOutput(cmd)
			err := c.SubscribeWithRetry(cmd.Context(), f, reconnect, func(ev watchdog.Event) {
				if asJSON {
					_ = printJSON(out, ev)
					return
				}
				switch {
				case ev.Message != "":
					fmt.Fprintf(out, "%-16s %s\n", ev.Event, ev.Message)
				default:
					fmt.Fprintf(out, "%-16s token=%s tx=%s from=%s\n", ev.Event, ev.Token, ev.TxHash, ev.TxFrom)
				}
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&filter.Events, "event", nil, "Only show these event kinds (repeatable)")
	cmd.Flags().StringSliceVar(&filter.Tokens, "token", nil, "Only show events for these tokens (repeatable)")
	cmd.Flags().IntVar(&reconnect, "reconnect", 5, "Connection attempts before giving up on a broken stream")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var (
		req    watchdog.ClassifyRequest
		res    watchdog.ClassifyResult
		signer string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a classification attestation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr common.Address
			switch {
			case signer == "":
				a, err := getClient(cmd).SignerAddress(cmd.Context())
				if err != nil {
					return err
				}
				addr = a
			case common.IsHexAddress(signer):
				addr = common.HexToAddress(signer)
			default:
				return fmt.Errorf("invalid signer address %q", signer)
			}

			if err := watchdog.VerifyAttestation(&res, req, addr); err != nil {
				return fmt.Errorf("invalid attestation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: signed by %s\n", addr.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&req.TokenAddress, "token", "", "Token address from the request")
	cmd.Flags().StringVar(&req.FunctionSignature, "function", "", "Function signature from the request")
	cmd.Flags().StringVar(&res.Classification, "classification", "", "SAFE or MALICIOUS")
	cmd.Flags().IntVar(&res.RiskScore, "score", 0, "Risk score")
	cmd.Flags().StringVar(&res.Signature, "signature", "", "Hex signature")
	cmd.Flags().StringVar(&signer, "signer", "", "Expected signer address (default: fetch from the AVS)")
	for _, f := range []string{"token", "function", "classification", "signature"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an attestation signing key for AVS_PRIVATE_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			pub, ok := key.Public().(*ecdsa.PublicKey)
			if !ok {
				return errors.New("unexpected public key type")
			}
			priv := hex.EncodeToString(crypto.FromECDSA(key))
			addr := crypto.PubkeyToAddress(*pub).Hex()

			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]string{"privateKey": priv, "address": addr})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AVS_PRIVATE_KEY=%s\n", priv)
			fmt.Fprintf(cmd.OutOrStdout(), "# signer address: %s\n", addr)
			return nil
		},
	}
}
