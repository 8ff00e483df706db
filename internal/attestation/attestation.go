// Package attestation signs classification verdicts with a secp256k1 key so
// anyone holding the signer's address can verify them, on-chain or off.
//
// Canonical encoding:
//
//	encoding  = abi.encode(string tokenAddress, string functionSignature,
//	                       string classification, uint256 riskScore)
//	digest    = keccak256("\x19Ethereum Signed Message:\n32" || keccak256(encoding))
//	signature = r || s || v   (65 bytes, v in {27, 28}, 0x-prefixed hex)
//
// The digest is what Solidity's ECDSA.toEthSignedMessageHash produces for
// keccak256(abi.encode(...)), so a contract can check an attestation with
// ecrecover.
package attestation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Statement is the tuple an attestation binds.
type Statement struct {
	TokenAddress      string `json:"tokenAddress"`
	FunctionSignature string `json:"functionSignature"`
	Classification    string `json:"classification"`
	RiskScore         int    `json:"riskScore"`
}

var (
	// ErrNoKey means no signing key was configured.
	ErrNoKey = errors.New("attestation: signing key not configured")
	// ErrInvalidStatement means the statement cannot be encoded.
	ErrInvalidStatement = errors.New("attestation: invalid statement")
	// ErrInvalidSignature means a signature is malformed.
	ErrInvalidSignature = errors.New("attestation: invalid signature")
	// ErrSignerMismatch means a signature recovered to an unexpected address.
	ErrSignerMismatch = errors.New("attestation: signer mismatch")
)

// SigningError is returned when an attestation cannot be produced.
type SigningError struct {
	Op  string
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("attestation %s: %v", e.Op, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

var statementArgs = func() abi.Arguments {
	stringTy, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	uintTy, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "tokenAddress", Type: stringTy},
		{Name: "functionSignature", Type: stringTy},
		{Name: "classification", Type: stringTy},
		{Name: "riskScore", Type: uintTy},
	}
}()

// Encode returns the ABI encoding of a statement.
func Encode(st Statement) ([]byte, error) {
	if st.RiskScore < 0 {
		return nil, fmt.Errorf("%w: negative risk score %d", ErrInvalidStatement, st.RiskScore)
	}
	packed, err := statementArgs.Pack(
		st.TokenAddress,
		st.FunctionSignature,
		st.Classification,
		big.NewInt(int64(st.RiskScore)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatement, err)
	}
	return packed, nil
}

// Digest returns the EIP-191 hash that gets signed.
func Digest(st Statement) ([]byte, error) {
	encoded, err := Encode(st)
	if err != nil {
		return nil, err
	}
	return accounts.TextHash(crypto.Keccak256(encoded)), nil
}
