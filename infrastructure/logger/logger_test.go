package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_CallerFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	GetLogger().WithField("campaigns", 3).Info("Fetched campaigns")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Fetched campaigns", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(3), entry["campaigns"])
	assert.Equal(t, "logger_test.go", entry["file"])
	assert.Contains(t, entry["function"], "TestGetLogger_CallerFields")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, parseLevel(""))
	assert.Equal(t, log.WarnLevel, parseLevel("warn"))
	assert.Equal(t, log.DebugLevel, parseLevel("loud"))
}
