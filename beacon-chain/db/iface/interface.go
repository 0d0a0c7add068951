// Package iface defines the database interfaces used by the node, also
// containing useful, scoped interfaces such as a ReadOnlyDatabase.
package iface

import (
	"context"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
)

// ReadOnlyDatabase defines a struct which only has read access to database methods.
type ReadOnlyDatabase interface {
	FinalizationState(ctx context.Context, hash common.Hash) (*casper.FinalizationState, error)
	HasFinalizationState(ctx context.Context, hash common.Hash) bool
	StateSummary(ctx context.Context, hash common.Hash) (*kv.StateSummary, error)
	StateSummaries(ctx context.Context) ([]*kv.StateSummary, error)
	TipHash(ctx context.Context) (common.Hash, error)
	DatabasePath() string
}

// Database interface with full access.
type Database interface {
	ReadOnlyDatabase
	SaveFinalizationState(ctx context.Context, summary *kv.StateSummary, st *casper.FinalizationState) error
	DeleteFinalizationStates(ctx context.Context, hashes []common.Hash) error
	SaveTipHash(ctx context.Context, hash common.Hash) error
	Backup(ctx context.Context) (string, error)
	ClearDB() error
	Close() error
}

// VoteDatabase is the store of finalizer votes used for slashing detection.
type VoteDatabase interface {
	SaveVoteRecord(ctx context.Context, record *slashertypes.VoteRecord) (bool, error)
	VoteRecord(ctx context.Context, validator common.Address, targetEpoch primitives.Epoch) (*slashertypes.VoteRecord, error)
	VoteRecords(ctx context.Context) ([]*slashertypes.VoteRecord, error)
	VoteRecordsForValidator(ctx context.Context, validator common.Address) ([]*slashertypes.VoteRecord, error)
	DatabasePath() string
	ClearDB() error
	Close() error
}
