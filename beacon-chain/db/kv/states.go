package kv

import (
	"bytes"
	"context"
	"sort"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// StateSummary locates a persisted state in the block tree. A zero Parent
// marks genesis.
type StateSummary struct {
	Hash   common.Hash
	Height primitives.Height
	Parent common.Hash
}

// SaveFinalizationState stores st under summary.Hash together with its summary.
func (s *Store) SaveFinalizationState(ctx context.Context, summary *StateSummary, st *casper.FinalizationState) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveFinalizationState")
	defer span.End()
	if summary == nil || st == nil {
		return errors.New("cannot save nil state or summary")
	}
	snap := st.Snapshot()
	enc, err := encode(snap)
	if err != nil {
		return errors.Wrap(err, "could not encode finalization state")
	}
	encSummary, err := encode(summary)
	if err != nil {
		return errors.Wrap(err, "could not encode state summary")
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(finalizationStatesBucket).Put(summary.Hash.Bytes(), enc); err != nil {
			return err
		}
		return tx.Bucket(finalizationTipsBucket).Put(summary.Hash.Bytes(), encSummary)
	}); err != nil {
		return err
	}
	s.stateCache.Add(summary.Hash, snap)
	savedStatesTotal.Inc()
	span.AddAttributes(trace.Int64Attribute("height", int64(summary.Height)))
	return nil
}

// FinalizationState returns a fresh copy of the state stored for hash, or
// nil if there is none. The returned state has status NEW.
func (s *Store) FinalizationState(ctx context.Context, hash common.Hash) (*casper.FinalizationState, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.FinalizationState")
	defer span.End()

	if v, ok := s.stateCache.Get(hash); ok {
		stateCacheHit.Inc()
		return casper.FromSnapshot(s.cfg, s.admin, v.(*casper.Snapshot)), nil
	}
	stateCacheMiss.Inc()

	var snap *casper.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(finalizationStatesBucket).Get(hash.Bytes())
		if enc == nil {
			return nil
		}
		snap = &casper.Snapshot{}
		return decode(enc, snap)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode state %s", hash.Hex())
	}
	if snap == nil {
		return nil, nil
	}
	s.stateCache.Add(hash, snap)
	return casper.FromSnapshot(s.cfg, s.admin, snap), nil
}

// HasFinalizationState checks whether a state is stored for hash.
func (s *Store) HasFinalizationState(ctx context.Context, hash common.Hash) bool {
	_, span := trace.StartSpan(ctx, "BeaconDB.HasFinalizationState")
	defer span.End()
	if s.stateCache.Contains(hash) {
		return true
	}
	exists := false
	if err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(finalizationStatesBucket).Get(hash.Bytes()) != nil
		return nil
	}); err != nil {
		panic(err)
	}
	return exists
}

// StateSummary returns the summary stored for hash, or nil if there is none.
func (s *Store) StateSummary(ctx context.Context, hash common.Hash) (*StateSummary, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.StateSummary")
	defer span.End()
	var summary *StateSummary
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(finalizationTipsBucket).Get(hash.Bytes())
		if enc == nil {
			return nil
		}
		summary = &StateSummary{}
		return decode(enc, summary)
	})
	return summary, err
}

// StateSummaries returns every stored summary ordered by height, then hash.
func (s *Store) StateSummaries(ctx context.Context) ([]*StateSummary, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.StateSummaries")
	defer span.End()
	summaries := make([]*StateSummary, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(finalizationTipsBucket).ForEach(func(k, v []byte) error {
			summary := &StateSummary{}
			if err := decode(v, summary); err != nil {
				return errors.Wrapf(err, "could not decode summary %#x", k)
			}
			summaries = append(summaries, summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Height != summaries[j].Height {
			return summaries[i].Height < summaries[j].Height
		}
		return bytes.Compare(summaries[i].Hash.Bytes(), summaries[j].Hash.Bytes()) < 0
	})
	return summaries, nil
}

// DeleteFinalizationStates removes the states and summaries of hashes.
// Unknown hashes are ignored.
func (s *Store) DeleteFinalizationStates(ctx context.Context, hashes []common.Hash) error {
	_, span := trace.StartSpan(ctx, "BeaconDB.DeleteFinalizationStates")
	defer span.End()
	span.AddAttributes(trace.Int64Attribute("count", int64(len(hashes))))
	if err := s.db.Update(func(tx *bolt.Tx) error {
		states := tx.Bucket(finalizationStatesBucket)
		tips := tx.Bucket(finalizationTipsBucket)
		for _, h := range hashes {
			if err := states.Delete(h.Bytes()); err != nil {
				return err
			}
			if err := tips.Delete(h.Bytes()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, h := range hashes {
		s.stateCache.Remove(h)
	}
	return nil
}

// SaveTipHash records the hash of the active chain tip.
func (s *Store) SaveTipHash(ctx context.Context, hash common.Hash) error {
	_, span := trace.StartSpan(ctx, "BeaconDB.SaveTipHash")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainMetadataBucket).Put(tipHashKey, hash.Bytes())
	})
}

// TipHash returns the hash of the active chain tip, or the zero hash if none
// was saved.
func (s *Store) TipHash(ctx context.Context) (common.Hash, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.TipHash")
	defer span.End()
	var hash common.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(chainMetadataBucket).Get(tipHashKey)
		if enc != nil {
			hash = common.BytesToHash(enc)
		}
		return nil
	})
	return hash, err
}
