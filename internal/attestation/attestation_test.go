package attestation

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(Config{PrivateKeyHex: "0x" + hex.EncodeToString(crypto.FromECDSA(key))})
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())
	return s
}

var testStatement = Statement{
	TokenAddress:      "0xNEWtoken",
	FunctionSignature: "mint",
	Classification:    "MALICIOUS",
	RiskScore:         100,
}

func TestEncode_Layout(t *testing.T) {
	enc, err := Encode(Statement{
		TokenAddress:      "0xABC",
		FunctionSignature: "mint",
		Classification:    "SAFE",
		RiskScore:         42,
	})
	require.NoError(t, err)

	// 4 head words, then length + one padded data word for each short string
	assert.Len(t, enc, 4*32+3*64)

	// riskScore is encoded in place as the fourth head word
	assert.Equal(t, int64(42), new(big.Int).SetBytes(enc[96:128]).Int64())

	// first string starts right after the head
	assert.Equal(t, int64(128), new(big.Int).SetBytes(enc[0:32]).Int64())
	assert.Equal(t, int64(5), new(big.Int).SetBytes(enc[128:160]).Int64())
	assert.Equal(t, "0xABC", string(enc[160:165]))
}

func TestEncode_RejectsNegativeScore(t *testing.T) {
	_, err := Encode(Statement{TokenAddress: "0xABC", FunctionSignature: "mint", Classification: "SAFE", RiskScore: -1})
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestDigest_IsEthSignedMessageOfKeccak(t *testing.T) {
	enc, err := Encode(testStatement)
	require.NoError(t, err)

	inner := crypto.Keccak256(enc)
	want := crypto.Keccak256(append([]byte("\x19Ethereum Signed Message:\n32"), inner...))

	got, err := Digest(testStatement)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSignAndRecover(t *testing.T) {
	s := newTestSigner(t)

	sig, err := s.Sign(context.Background(), testStatement)
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64])

	addr, err := Recover(testStatement, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)

	// unprefixed hex is accepted too
	addr, err = Recover(testStatement, sig[2:])
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)
}

func TestSign_TwoCallsVerifyAgainstSameKey(t *testing.T) {
	s := newTestSigner(t)

	sig1, err := s.Sign(context.Background(), testStatement)
	require.NoError(t, err)
	sig2, err := s.Sign(context.Background(), testStatement)
	require.NoError(t, err)

	assert.NoError(t, Verify(testStatement, sig1, s.Address()))
	assert.NoError(t, Verify(testStatement, sig2, s.Address()))
}

func TestVerify_DetectsTampering(t *testing.T) {
	s := newTestSigner(t)
	sig, err := s.Sign(context.Background(), testStatement)
	require.NoError(t, err)

	tampered := testStatement
	tampered.Classification = "SAFE"
	assert.ErrorIs(t, Verify(tampered, sig, s.Address()), ErrSignerMismatch)

	other := newTestSigner(t)
	assert.ErrorIs(t, Verify(testStatement, sig, other.Address()), ErrSignerMismatch)
}

func TestRecover_InvalidSignature(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{"not hex", "0xzz"},
		{"too short", "0x1234"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Recover(testStatement, tt.sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestSign_CancelledContext(t *testing.T) {
	s := newTestSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sign(ctx, testStatement)
	var se *SigningError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "sign", se.Op)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSign_NegativeScoreIsSigningError(t *testing.T) {
	s := newTestSigner(t)
	bad := testStatement
	bad.RiskScore = -5

	_, err := s.Sign(context.Background(), bad)
	var se *SigningError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "encode", se.Op)
}

func TestNewSigner_BadKeys(t *testing.T) {
	_, err := NewSigner(Config{})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = NewSigner(Config{PrivateKeyHex: "0xnothex"})
	var se *SigningError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load_key", se.Op)
}

func TestSign_Concurrent(t *testing.T) {
	s := newTestSigner(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			st := testStatement
			st.RiskScore = score
			sig, err := s.Sign(context.Background(), st)
			if err == nil {
				err = Verify(st, sig, s.Address())
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
