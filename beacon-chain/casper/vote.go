package casper

import (
	"fmt"

	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160" // #nosec G507 -- address derivation is part of the chain format.
)

// Vote is a finalizer's vote to move justification from SourceEpoch to the
// checkpoint TargetHash of TargetEpoch.
type Vote struct {
	Validator   common.Address
	TargetHash  common.Hash
	SourceEpoch primitives.Epoch
	TargetEpoch primitives.Epoch
}

func (v *Vote) String() string {
	return fmt.Sprintf("vote{%s %d->%d %s}", v.Validator.Hex(), v.SourceEpoch, v.TargetEpoch, v.TargetHash.TerminalString())
}

// SlashingKind names the way two votes contradict each other.
type SlashingKind uint8

const (
	NotSlashable SlashingKind = iota
	DoubleVote
	SurroundVote
)

func (k SlashingKind) String() string {
	switch k {
	case NotSlashable:
		return "not slashable"
	case DoubleVote:
		return "double vote"
	case SurroundVote:
		return "surround vote"
	default:
		return fmt.Sprintf("SlashingKind(%d)", uint8(k))
	}
}

// CheckSlashable reports whether a and b are contradicting votes of the same
// validator: two votes for different hashes of one target epoch, or two votes
// whose source to target spans strictly nest.
func CheckSlashable(a, b *Vote) SlashingKind {
	if a.Validator != b.Validator {
		return NotSlashable
	}
	if a.TargetEpoch == b.TargetEpoch && a.TargetHash != b.TargetHash {
		return DoubleVote
	}
	if surrounds(a, b) || surrounds(b, a) {
		return SurroundVote
	}
	return NotSlashable
}

func surrounds(outer, inner *Vote) bool {
	return outer.SourceEpoch < inner.SourceEpoch && inner.TargetEpoch < outer.TargetEpoch
}

// AddressFromPubKey derives a validator address, RIPEMD160(SHA256(pubkey)).
func AddressFromPubKey(pubKey []byte) common.Address {
	digest := sha256.Sum256(pubKey)
	h := ripemd160.New()
	if _, err := h.Write(digest[:]); err != nil {
		panic(err)
	}
	return common.BytesToAddress(h.Sum(nil))
}
