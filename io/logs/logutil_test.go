package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurePersistentLogging(t *testing.T) {
	out := logrus.StandardLogger().Out
	t.Cleanup(func() {
		logrus.SetOutput(out)
	})

	logFileName := filepath.Join(t.TempDir(), "nested", "dir", "node.log")
	require.NoError(t, ConfigurePersistentLogging(logFileName))

	logrus.Info("written to file")
	content, err := os.ReadFile(logFileName)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")

	info, err := os.Stat(logFileName)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(logFilePermissions), info.Mode().Perm())
}

func TestConfigurePersistentLogging_DirectoryIsFile(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte{}, 0600))
	assert.Error(t, ConfigurePersistentLogging(filepath.Join(parent, "node.log")))
}
