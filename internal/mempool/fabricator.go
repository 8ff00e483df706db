package mempool

import (
	"crypto/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fabricator invents the transaction details of a simulated rug.
type Fabricator interface {
	TxHash() common.Hash
	Originator() common.Address
}

// RandomFabricator produces fresh, well-formed hashes and addresses.
type RandomFabricator struct{}

// TxHash returns keccak256 of 32 random bytes.
func (RandomFabricator) TxHash() common.Hash {
	return common.BytesToHash(crypto.Keccak256(randomBytes(32)))
}

// Originator returns a random address.
func (RandomFabricator) Originator() common.Address {
	return common.BytesToAddress(crypto.Keccak256(randomBytes(32))[12:])
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// FixedFabricator always returns the same details.
type FixedFabricator struct {
	Hash common.Hash
	From common.Address
}

func (f FixedFabricator) TxHash() common.Hash        { return f.Hash }
func (f FixedFabricator) Originator() common.Address { return f.From }
