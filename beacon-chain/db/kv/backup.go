package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

const backupsDirectoryName = "backups"

// Backup the database to the datadir backup directory.
// Example for a backup at height 345: $DATADIR/backups/esperanza_db_at_height_0000345.backup
func (s *Store) Backup(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.Backup")
	defer span.End()

	tip, err := s.TipHash(ctx)
	if err != nil {
		return "", err
	}
	summary, err := s.StateSummary(ctx, tip)
	if err != nil {
		return "", err
	}
	if summary == nil {
		return "", errors.New("no tip state")
	}
	backupsDir := filepath.Join(s.databasePath, backupsDirectoryName)
	if err := os.MkdirAll(backupsDir, 0700); err != nil {
		return "", err
	}
	backupPath := filepath.Join(backupsDir, fmt.Sprintf("esperanza_db_at_height_%07d.backup", summary.Height))
	log.WithField("backup", backupPath).Info("Writing backup database")
	return backupPath, s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupPath, 0600)
	})
}
