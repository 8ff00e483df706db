package attestation

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Config carries the process-held signing key.
type Config struct {
	// PrivateKeyHex is a 32-byte secp256k1 key, with or without 0x.
	PrivateKeyHex string
}

// Signer produces attestations. The key is parsed once and read-only after,
// so a Signer is safe for concurrent use.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses the configured key.
func NewSigner(cfg Config) (*Signer, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKeyHex), "0x")
	if hexKey == "" {
		return nil, &SigningError{Op: "load_key", Err: ErrNoKey}
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, &SigningError{Op: "load_key", Err: err}
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the address attestations recover to.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign attests a statement. A done context is fatal, even though signing
// itself does not block.
func (s *Signer) Sign(ctx context.Context, st Statement) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	if s == nil || s.key == nil {
		return "", &SigningError{Op: "sign", Err: ErrNoKey}
	}

	digest, err := Digest(st)
	if err != nil {
		return "", &SigningError{Op: "encode", Err: err}
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", &SigningError{Op: "sign", Err: err}
	}
	// Ethereum signatures carry v = 27 or 28
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// Recover returns the address that signed st.
func Recover(st Statement, signatureHex string) (common.Address, error) {
	if !strings.HasPrefix(signatureHex, "0x") {
		signatureHex = "0x" + signatureHex
	}
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest, err := Digest(st)
	if err != nil {
		return common.Address{}, err
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks that signatureHex over st was produced by expected.
func Verify(st Statement, signatureHex string, expected common.Address) error {
	got, err := Recover(st, signatureHex)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrSignerMismatch, expected.Hex(), got.Hex())
	}
	return nil
}
