package simulator

import (
	"fmt"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/sha256-simd"
)

// Parameters shape the simulated chain.
type Parameters struct {
	// NumValidators deposit in the first block and vote every epoch.
	NumValidators int
	// ForkEvery adds an empty sibling block every ForkEvery heights. Zero
	// disables forks.
	ForkEvery int
	// DoubleVoteEpoch is the epoch in which the first validator also votes
	// for a competing target. Zero disables it.
	DoubleVoteEpoch primitives.Epoch
	// LogoutEpoch is the epoch from which the last validator logs out and
	// later withdraws. Zero disables it.
	LogoutEpoch primitives.Epoch
}

// DefaultParams returns parameters exercising forks, a slashing and a
// withdrawal on a regtest chain.
func DefaultParams() *Parameters {
	return &Parameters{
		NumValidators:   4,
		ForkEvery:       7,
		DoubleVoteEpoch: 6,
		LogoutEpoch:     10,
	}
}

// validatorAddresses derives the addresses of n simulated finalizers from
// compressed public keys.
func validatorAddresses(n int) []common.Address {
	addrs := make([]common.Address, n)
	for i := range addrs {
		seed := sha256.Sum256([]byte(fmt.Sprintf("esperanza-simulated-validator-%d", i)))
		pubKey := append([]byte{0x02}, seed[:]...)
		addrs[i] = casper.AddressFromPubKey(pubKey)
	}
	return addrs
}

func blockHash(parent common.Hash, height primitives.Height, branch byte) common.Hash {
	buf := make([]byte, 0, common.HashLength+9)
	buf = append(buf, parent.Bytes()...)
	buf = append(buf, byte(height>>24), byte(height>>16), byte(height>>8), byte(height), branch)
	return sha256.Sum256(buf)
}

func txHash(block common.Hash, i int) common.Hash {
	return sha256.Sum256(append(block.Bytes(), byte(i>>8), byte(i)))
}

func sign(vote *casper.Vote) []byte {
	sig := sha256.Sum256([]byte(vote.String()))
	return sig[:]
}
