package db

import (
	"io"
	"os"
	"path/filepath"

	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Restore copies a database backup into the data directory. An existing
// database is only overwritten with --force-clear-db.
func Restore(cliCtx *cli.Context) error {
	sourceFile := cliCtx.String(cmd.RestoreSourceFileFlag.Name)
	targetDir := cliCtx.String(cmd.RestoreTargetDirFlag.Name)

	restoreDir := filepath.Join(targetDir, kv.BeaconNodeDbDirName)
	restoreFile := filepath.Join(restoreDir, kv.DatabaseFileName)

	if _, err := os.Stat(restoreFile); err == nil {
		if !cliCtx.Bool(cmd.ForceClearDB.Name) {
			log.WithField("path", restoreFile).Info("Restore aborted, a database already exists")
			return nil
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not check if database exists in %s", restoreFile)
	}
	if err := os.MkdirAll(restoreDir, 0700); err != nil {
		return err
	}
	if err := copyFile(sourceFile, restoreFile); err != nil {
		return errors.Wrap(err, "could not copy backup")
	}

	log.Info("Restore completed successfully")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.WithError(err).Error("Could not close source file")
		}
	}()
	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
