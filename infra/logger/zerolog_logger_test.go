package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Warnw("warn", map[string]any{"behavior": "feeding"})
	l.Errorf("error")
}

func TestConfigureFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marinecast.log")
	Configure(Options{Level: "info", File: path, MaxSizeMB: 1})
	defer Configure(Options{})

	l := New("file-test")
	l.Debugf("filtered")
	l.Warnw("evaluation fallback", map[string]any{"behavior": "feeding"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "evaluation fallback")
	assert.Contains(t, string(data), `"component":"file-test"`)
	assert.NotContains(t, string(data), "filtered")
}
