package stategen

import (
	"testing"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	genesisHash = common.HexToHash("0x99")
	finalizer   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

func hashOf(fork byte, h primitives.Height) common.Hash {
	return common.BytesToHash([]byte{fork, byte(h >> 8), byte(h)})
}

func newRepository() (*Repository, *BlockIndex) {
	genesis := NewGenesisIndex(genesisHash)
	return NewRepository(params.RegtestConfig(), nil, genesis), genesis
}

func depositCommit(fork byte) casper.Commit {
	return &casper.DepositCommit{
		Hash:      common.Hash{fork, 1},
		Validator: finalizer,
		Amount:    params.RegtestConfig().MinDepositSize,
	}
}

func build(index *BlockIndex, commits ...casper.Commit) func(*casper.FinalizationState) error {
	return func(st *casper.FinalizationState) error {
		return st.ProcessNewCommits(index.Height, index.Hash, commits)
	}
}

// buildChain returns n blocks on top of genesis. The finalizer deposits in
// the first block and votes once per epoch as soon as it is active.
func buildChain(t *testing.T, genesis *BlockIndex, fork byte, n int) []*Block {
	shadow := casper.NewFinalizationState(params.RegtestConfig(), nil)
	blocks := make([]*Block, 0, n)
	parent := genesis
	var voted primitives.Epoch
	for h := primitives.Height(1); h <= primitives.Height(n); h++ {
		index := NewChildIndex(parent, hashOf(fork, h))
		var commits []casper.Commit
		switch {
		case h == 1:
			commits = append(commits, depositCommit(fork))
		case shadow.Validator(finalizer).IsInDynasty(shadow.CurrentDynasty()) &&
			voted != shadow.CurrentEpoch() && !shadow.IsEpochStart(h):
			target, _ := shadow.RecommendedTarget()
			commits = append(commits, &casper.VoteCommit{
				Hash: common.Hash{fork, 0xcc, byte(h)},
				Vote: &casper.Vote{
					Validator:   finalizer,
					TargetHash:  target,
					SourceEpoch: shadow.ExpectedSourceEpoch(),
					TargetEpoch: shadow.CurrentEpoch(),
				},
				Signature: []byte{fork, byte(h)},
			})
			voted = shadow.CurrentEpoch()
		}
		require.NoError(t, shadow.ProcessNewCommits(h, index.Hash, commits), "height %d", h)
		blocks = append(blocks, &Block{Index: index, Commits: commits})
		parent = index
	}
	return blocks
}

func voteCount(blocks []*Block) int {
	n := 0
	for _, b := range blocks {
		for _, c := range b.Commits {
			if _, ok := c.(*casper.VoteCommit); ok {
				n++
			}
		}
	}
	return n
}
