package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLevelForVerbosity(t *testing.T) {
	require.Equal(t, logrus.WarnLevel, LevelForVerbosity(0))
	require.Equal(t, logrus.InfoLevel, LevelForVerbosity(1))
	require.Equal(t, logrus.DebugLevel, LevelForVerbosity(2))
	require.Equal(t, logrus.DebugLevel, LevelForVerbosity(5))
	require.Equal(t, logrus.WarnLevel, LevelForVerbosity(-1))
}

func TestSetupWithoutFile(t *testing.T) {
	require.NoError(t, Setup(1, "", false))
	require.Equal(t, logrus.InfoLevel, base.GetLevel())

	require.NoError(t, Setup(0, "", false))
	require.Equal(t, logrus.WarnLevel, base.GetLevel())
}

func TestSetupWritesDebugToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "grtinfo.log")
	require.NoError(t, Setup(0, logFile, false))
	t.Cleanup(func() { _ = Setup(0, "", false) })

	log := New("loggerTest")
	log.Debug("fetching deployments")
	log.Warn("rate limited")

	raw, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "fetching deployments", first["msg"])
	require.Equal(t, "loggerTest", first["package"])
	require.Equal(t, "debug", first["level"])
}

func TestNewTagsPackage(t *testing.T) {
	entry := New("networkSubgraph")
	require.Equal(t, "networkSubgraph", entry.Data["package"])
}
