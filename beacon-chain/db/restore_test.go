package db

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/esperanzalabs/esperanza/beacon-chain/casper"
	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/ethereum/go-ethereum/common"
	logTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func restoreContext(t *testing.T, source, target string, force bool) *cli.Context {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String(cmd.RestoreSourceFileFlag.Name, "", "")
	set.String(cmd.RestoreTargetDirFlag.Name, "", "")
	set.Bool(cmd.ForceClearDB.Name, force, "")
	require.NoError(t, set.Set(cmd.RestoreSourceFileFlag.Name, source))
	require.NoError(t, set.Set(cmd.RestoreTargetDirFlag.Name, target))
	return cli.NewContext(&app, set, nil)
}

func TestRestore(t *testing.T) {
	logHook := logTest.NewGlobal()
	ctx := context.Background()
	cfg := &kv.Config{FinalizationConfig: params.RegtestConfig()}

	backupDb, err := NewDB(ctx, t.TempDir(), cfg)
	require.NoError(t, err)
	hash := common.Hash{0x33}
	st := casper.NewFinalizationState(params.RegtestConfig(), nil)
	require.NoError(t, backupDb.SaveFinalizationState(ctx, &kv.StateSummary{Hash: hash, Height: 0}, st))
	require.NoError(t, backupDb.SaveTipHash(ctx, hash))
	backupPath, err := backupDb.Backup(ctx)
	require.NoError(t, err)
	require.NoError(t, backupDb.Close())

	restoreDir := t.TempDir()
	require.NoError(t, Restore(restoreContext(t, backupPath, restoreDir, false)))
	assert.Equal(t, "Restore completed successfully", logHook.LastEntry().Message)

	files, err := os.ReadDir(filepath.Join(restoreDir, kv.BeaconNodeDbDirName))
	require.NoError(t, err)
	require.Equal(t, 1, len(files))
	assert.Equal(t, kv.DatabaseFileName, files[0].Name())

	restoredDb, err := NewDB(ctx, filepath.Join(restoreDir, kv.BeaconNodeDbDirName), cfg)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, restoredDb.Close())
	}()
	tip, err := restoredDb.TipHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, hash, tip)
	assert.True(t, restoredDb.HasFinalizationState(ctx, hash))
}

func TestRestore_ExistingDatabase(t *testing.T) {
	logHook := logTest.NewGlobal()
	restoreDir := t.TempDir()
	dbDir := filepath.Join(restoreDir, kv.BeaconNodeDbDirName)
	require.NoError(t, os.MkdirAll(dbDir, 0700))
	existing := filepath.Join(dbDir, kv.DatabaseFileName)
	require.NoError(t, os.WriteFile(existing, []byte("existing"), 0600))
	source := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, os.WriteFile(source, []byte("backup"), 0600))

	require.NoError(t, Restore(restoreContext(t, source, restoreDir, false)))
	assert.Equal(t, "Restore aborted, a database already exists", logHook.LastEntry().Message)
	content, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(content))

	require.NoError(t, Restore(restoreContext(t, source, restoreDir, true)))
	content, err = os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "backup", string(content))
}
