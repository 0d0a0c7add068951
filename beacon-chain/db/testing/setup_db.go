// Package testing allows for spinning up real bolt-db instances for unit
// tests throughout the repo.
package testing

import (
	"context"
	"testing"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/slasherkv"
	"github.com/esperanzalabs/esperanza/config/params"
)

// SetupDB instantiates and returns a state store backed by a temp dir.
func SetupDB(t testing.TB, cfg *params.FinalizationConfig, admin *casper.AdminState) *kv.Store {
	s, err := kv.NewKVStore(context.Background(), t.TempDir(), &kv.Config{
		FinalizationConfig: cfg,
		Admin:              admin,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return s
}

// SetupVoteDB instantiates and returns a vote store backed by a temp dir.
func SetupVoteDB(t testing.TB) *slasherkv.Store {
	s, err := slasherkv.NewKVStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return s
}
