package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "app.log")
	audit := filepath.Join(dir, "audit", "audit.log")

	require.NoError(t, Init(Config{Level: "debug", OutputPaths: []string{out}, AuditPath: audit}))
	Named("storage").Debug("saved wallet", "name", "alpha")
	Audit().Info("transaction submitted", "signature", "abc")
	require.NoError(t, Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	require.Equal(t, "saved wallet", entry["msg"])
	require.Equal(t, "storage", entry["component"])

	auditData, err := os.ReadFile(audit)
	require.NoError(t, err)
	require.Contains(t, string(auditData), "transaction submitted")

	require.NoError(t, Init(Config{}))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel("debug").String())
	require.Equal(t, "WARN", parseLevel("warning").String())
	require.Equal(t, "ERROR", parseLevel("ERROR").String())
	require.Equal(t, "INFO", parseLevel("").String())
}
