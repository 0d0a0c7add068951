// Package slasher records every finalizer vote seen in a block and reports
// pairs of votes that contradict each other.
package slasher

import (
	"context"
	"sort"
	"sync"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// VoteStore persists vote records.
type VoteStore interface {
	SaveVoteRecord(ctx context.Context, record *slashertypes.VoteRecord) (bool, error)
	VoteRecords(ctx context.Context) ([]*slashertypes.VoteRecord, error)
}

// VoteRecorder keeps the vote history of every validator in memory, backed by
// a VoteStore, and publishes slashing evidence on a feed.
type VoteRecorder struct {
	db           VoteStore
	lock         sync.Mutex
	votes        map[common.Address][]*slashertypes.VoteRecord
	slashingFeed event.Feed
}

// NewVoteRecorder loads the full vote history from db.
func NewVoteRecorder(ctx context.Context, db VoteStore) (*VoteRecorder, error) {
	ctx, span := trace.StartSpan(ctx, "slasher.NewVoteRecorder")
	defer span.End()
	records, err := db.VoteRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not load vote records")
	}
	r := &VoteRecorder{
		db:    db,
		votes: make(map[common.Address][]*slashertypes.VoteRecord),
	}
	for _, record := range records {
		r.insert(record)
	}
	log.WithFields(logrus.Fields{
		"records":    len(records),
		"validators": len(r.votes),
	}).Info("Loaded vote history")
	return r, nil
}

// RecordVote checks vote against the validator's history, persists it, and
// sends a SlashingConditionDetected when it contradicts an earlier record.
// The returned evidence is nil for an honest vote.
func (r *VoteRecorder) RecordVote(
	ctx context.Context, vote *casper.Vote, signature []byte,
) (*slashertypes.SlashingConditionDetected, error) {
	ctx, span := trace.StartSpan(ctx, "slasher.RecordVote")
	defer span.End()
	if vote == nil {
		return nil, errors.New("nil vote")
	}
	record := &slashertypes.VoteRecord{
		Vote:      *vote,
		Signature: append([]byte(nil), signature...),
	}

	evidence, err := r.record(ctx, record)
	if err != nil {
		return nil, err
	}
	if evidence != nil {
		log.WithFields(logrus.Fields{
			"kind":      evidence.Kind,
			"candidate": evidence.Candidate.Vote.String(),
			"existing":  evidence.Existing.Vote.String(),
		}).Warn("Slashable vote detected")
		r.slashingFeed.Send(evidence)
	}
	return evidence, nil
}

func (r *VoteRecorder) record(ctx context.Context, record *slashertypes.VoteRecord) (*slashertypes.SlashingConditionDetected, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	evidence := r.findOffending(record)
	saved, err := r.db.SaveVoteRecord(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, "could not save vote record")
	}
	if saved {
		r.insert(record)
		recordedVotesTotal.Inc()
	}
	if evidence != nil {
		switch evidence.Kind {
		case casper.DoubleVote:
			doubleVotesTotal.Inc()
		case casper.SurroundVote:
			surroundVotesTotal.Inc()
		}
	}
	return evidence, nil
}

// findOffending looks for a double vote first and then walks the history in
// target order looking for a surround vote.
func (r *VoteRecorder) findOffending(record *slashertypes.VoteRecord) *slashertypes.SlashingConditionDetected {
	history := r.votes[record.Vote.Validator]
	for _, existing := range history {
		if casper.CheckSlashable(&record.Vote, &existing.Vote) == casper.DoubleVote {
			return &slashertypes.SlashingConditionDetected{Kind: casper.DoubleVote, Candidate: record, Existing: existing}
		}
	}
	for _, existing := range history {
		if casper.CheckSlashable(&record.Vote, &existing.Vote) == casper.SurroundVote {
			return &slashertypes.SlashingConditionDetected{Kind: casper.SurroundVote, Candidate: record, Existing: existing}
		}
	}
	return nil
}

// insert keeps the per-validator history sorted by target epoch with at
// most one record per target.
func (r *VoteRecorder) insert(record *slashertypes.VoteRecord) {
	history := r.votes[record.Vote.Validator]
	target := record.Vote.TargetEpoch
	i := sort.Search(len(history), func(i int) bool {
		return history[i].Vote.TargetEpoch >= target
	})
	if i < len(history) && history[i].Vote.TargetEpoch == target {
		return
	}
	history = append(history, nil)
	copy(history[i+1:], history[i:])
	history[i] = record
	r.votes[record.Vote.Validator] = history
}

// Votes returns a copy of a validator's recorded votes ordered by target epoch.
func (r *VoteRecorder) Votes(addr common.Address) []*slashertypes.VoteRecord {
	r.lock.Lock()
	defer r.lock.Unlock()
	history := r.votes[addr]
	votes := make([]*slashertypes.VoteRecord, len(history))
	copy(votes, history)
	return votes
}

// SubscribeSlashings registers ch for every detected slashing condition.
func (r *VoteRecorder) SubscribeSlashings(ch chan<- *slashertypes.SlashingConditionDetected) event.Subscription {
	return r.slashingFeed.Subscribe(ch)
}
