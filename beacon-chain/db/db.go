package db

import (
	"context"

	"github.com/esperanzalabs/esperanza/beacon-chain/db/iface"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/slasherkv"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// Database defines the necessary methods for the node's state store.
type Database = iface.Database

// VoteDatabase defines the necessary methods for the vote store.
type VoteDatabase = iface.VoteDatabase

// NewDB initializes a new state store.
func NewDB(ctx context.Context, dirPath string, config *kv.Config) (Database, error) {
	return kv.NewKVStore(ctx, dirPath, config)
}

// NewVoteDB initializes a new vote store.
func NewVoteDB(ctx context.Context, dirPath string) (VoteDatabase, error) {
	return slasherkv.NewKVStore(ctx, dirPath)
}
