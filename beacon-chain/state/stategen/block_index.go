package stategen

import (
	"fmt"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
)

// BlockIndex identifies a block in the block tree. Genesis has height 0 and
// no parent.
type BlockIndex struct {
	Hash   common.Hash
	Height primitives.Height
	Parent *BlockIndex
}

// NewGenesisIndex returns the index of a genesis block.
func NewGenesisIndex(hash common.Hash) *BlockIndex {
	return &BlockIndex{Hash: hash}
}

// NewChildIndex returns the index of a block built on parent.
func NewChildIndex(parent *BlockIndex, hash common.Hash) *BlockIndex {
	return &BlockIndex{Hash: hash, Height: parent.Height + 1, Parent: parent}
}

// Ancestor walks back to the ancestor at height, or returns nil if the index
// is lower than height or the chain is cut before it.
func (b *BlockIndex) Ancestor(height primitives.Height) *BlockIndex {
	if b == nil || height > b.Height {
		return nil
	}
	cur := b
	for cur != nil && cur.Height > height {
		cur = cur.Parent
	}
	return cur
}

func (b *BlockIndex) String() string {
	return fmt.Sprintf("%d:%s", b.Height, b.Hash.TerminalString())
}

// Block is a block as seen by the finalization layer: its index and the
// finalization commits it carries.
type Block struct {
	Index   *BlockIndex
	Commits []casper.Commit
}
