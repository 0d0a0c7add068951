package slasherkv

import (
	"bytes"
	"context"
	"encoding/binary"

	slashertypes "github.com/esperanzalabs/esperanza/beacon-chain/slasher/types"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

const voteKeySize = common.AddressLength + 4

// SaveVoteRecord persists a vote under (validator, target epoch). When a record
// already exists for that key the stored one is kept and saved is false.
func (s *Store) SaveVoteRecord(ctx context.Context, record *slashertypes.VoteRecord) (saved bool, err error) {
	ctx, span := trace.StartSpan(ctx, "SlasherDB.SaveVoteRecord")
	defer span.End()
	if record == nil {
		return false, errors.New("cannot save nil vote record")
	}
	enc, err := encodeVoteRecord(record)
	if err != nil {
		return false, err
	}
	key := encodeVoteKey(record.Vote.Validator, record.Vote.TargetEpoch)
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(voteRecordsBucket)
		if bkt.Get(key) != nil {
			return nil
		}
		saved = true
		return bkt.Put(key, enc)
	})
	span.AddAttributes(trace.BoolAttribute("saved", saved))
	return saved, err
}

// VoteRecord returns the record stored for a validator at a target epoch,
// or nil if none exists.
func (s *Store) VoteRecord(
	ctx context.Context, validator common.Address, targetEpoch primitives.Epoch,
) (*slashertypes.VoteRecord, error) {
	_, span := trace.StartSpan(ctx, "SlasherDB.VoteRecord")
	defer span.End()
	var record *slashertypes.VoteRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(voteRecordsBucket).Get(encodeVoteKey(validator, targetEpoch))
		if enc == nil {
			return nil
		}
		var err error
		record, err = decodeVoteRecord(enc)
		return err
	})
	return record, err
}

// VoteRecordsForValidator returns a validator's records ordered by target epoch.
func (s *Store) VoteRecordsForValidator(ctx context.Context, validator common.Address) ([]*slashertypes.VoteRecord, error) {
	_, span := trace.StartSpan(ctx, "SlasherDB.VoteRecordsForValidator")
	defer span.End()
	records := make([]*slashertypes.VoteRecord, 0)
	prefix := validator.Bytes()
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(voteRecordsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			record, err := decodeVoteRecord(v)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// VoteRecords scans the whole store. Records come back grouped by validator and
// ordered by target epoch within each validator.
func (s *Store) VoteRecords(ctx context.Context) ([]*slashertypes.VoteRecord, error) {
	_, span := trace.StartSpan(ctx, "SlasherDB.VoteRecords")
	defer span.End()
	records := make([]*slashertypes.VoteRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(voteRecordsBucket).ForEach(func(k, v []byte) error {
			if len(k) != voteKeySize {
				return errors.Errorf("malformed vote key of %d bytes", len(k))
			}
			record, err := decodeVoteRecord(v)
			if err != nil {
				return errors.Wrapf(err, "could not decode vote record %#x", k)
			}
			records = append(records, record)
			return nil
		})
	})
	span.AddAttributes(trace.Int64Attribute("records", int64(len(records))))
	return records, err
}

func encodeVoteKey(validator common.Address, targetEpoch primitives.Epoch) []byte {
	key := make([]byte, voteKeySize)
	copy(key, validator.Bytes())
	binary.BigEndian.PutUint32(key[common.AddressLength:], uint32(targetEpoch))
	return key
}

func encodeVoteRecord(record *slashertypes.VoteRecord) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(record)
	if err != nil {
		return nil, errors.Wrap(err, "could not rlp encode vote record")
	}
	return snappy.Encode(nil, enc), nil
}

func decodeVoteRecord(enc []byte) (*slashertypes.VoteRecord, error) {
	dec, err := snappy.Decode(nil, enc)
	if err != nil {
		return nil, errors.Wrap(err, "could not snappy decode vote record")
	}
	record := &slashertypes.VoteRecord{}
	if err := rlp.DecodeBytes(dec, record); err != nil {
		return nil, errors.Wrap(err, "could not rlp decode vote record")
	}
	return record, nil
}
