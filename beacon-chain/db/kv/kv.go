// Package kv defines a bolt-db, key-value store implementation of the
// Database interface defined by the node. It keeps the finalization
// state of every completed block index.
package kv

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/config/params"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	prombolt "github.com/prysmaticlabs/prombbolt"
	bolt "go.etcd.io/bbolt"
)

const (
	// BeaconNodeDbDirName is the name of the directory containing the node database.
	BeaconNodeDbDirName = "beaconchaindata"
	// DatabaseFileName is the name of the node database.
	DatabaseFileName = "beaconchain.db"

	// DefaultStateCacheSize is the number of decoded snapshots kept in memory.
	DefaultStateCacheSize = 128
)

// Config for the bolt db kv store.
type Config struct {
	FinalizationConfig *params.FinalizationConfig
	Admin              *casper.AdminState
	StateCacheSize     int
}

// Store defines an implementation of the Database interface using BoltDB
// as the underlying persistent kv-store.
type Store struct {
	db           *bolt.DB
	databasePath string
	cfg          *params.FinalizationConfig
	admin        *casper.AdminState
	stateCache   *lru.Cache
	ctx          context.Context
}

// NewKVStore initializes a new boltDB key-value store at the directory
// path specified, creates the kv-buckets based on the schema, and stores
// an open connection db object as a property of the Store struct.
func NewKVStore(ctx context.Context, dirPath string, config *Config) (*Store, error) {
	if config == nil || config.FinalizationConfig == nil {
		return nil, errors.New("finalization config is required")
	}
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, err
	}
	datafile := filepath.Join(dirPath, DatabaseFileName)
	boltDB, err := bolt.Open(datafile, 0600, &bolt.Options{Timeout: 1 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	size := config.StateCacheSize
	if size <= 0 {
		size = DefaultStateCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	kv := &Store{
		db:           boltDB,
		databasePath: dirPath,
		cfg:          config.FinalizationConfig,
		admin:        config.Admin,
		stateCache:   cache,
		ctx:          ctx,
	}
	if err := kv.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(
			tx,
			finalizationStatesBucket,
			finalizationTipsBucket,
			chainMetadataBucket,
		)
	}); err != nil {
		return nil, err
	}
	if err := prometheus.Register(createBoltCollector(kv.db)); err != nil {
		log.WithError(err).Debug("Could not register bolt collector")
	}
	return kv, nil
}

// ClearDB removes the previously stored database in the data directory.
func (s *Store) ClearDB() error {
	if _, err := os.Stat(s.databasePath); os.IsNotExist(err) {
		return nil
	}
	prometheus.Unregister(createBoltCollector(s.db))
	if err := os.Remove(filepath.Join(s.databasePath, DatabaseFileName)); err != nil {
		return errors.Wrap(err, "could not remove database file")
	}
	return nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	prometheus.Unregister(createBoltCollector(s.db))
	return s.db.Close()
}

// DatabasePath at which this database writes files.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}

// createBoltCollector returns a prometheus collector specifically configured for boltdb.
func createBoltCollector(db *bolt.DB) prometheus.Collector {
	return prombolt.New("boltDB", db)
}
