package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecommerce-mvp/shop/internal/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_DuplicatesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "shop.log")
	logger, err := logging.NewLogger(logging.Options{Service: "shop", Env: "test", Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("cart_probe")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(raw))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "cart_probe", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "shop", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Contains(t, entry, "ts")
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := logging.NewLogger(logging.Options{Service: "shop", Level: "loud"})
	assert.Error(t, err)
}
