package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {

	logger := NewLogger(slog.LevelDebug, nil)

	logger.Info("info test")
	logger.Warn("warn test")
	logger.Debug("debug test")
}

func TestLogFile(t *testing.T) {

	fs := afero.NewMemMapFs()
	file, err := fs.Create("/ca.log")
	require.NoError(t, err)

	logger := NewLogger(slog.LevelInfo, file)
	logger.Infof("issued %d certificates", 2)
	logger.Debug("not written")
	require.NoError(t, file.Close())

	data, err := afero.ReadFile(fs, "/ca.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "issued 2 certificates")
	assert.NotContains(t, string(data), "not written")
}

func TestError(t *testing.T) {

	var buf bytes.Buffer
	logger := NewWriterLogger(slog.LevelDebug, &buf)

	logger.Error(errors.New("an error occurred"), "serial", "01")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "an error occurred", record["msg"])
	assert.Contains(t, record["error"], "an error occurred")
	assert.Equal(t, "01", record["serial"])
}

func TestAudit(t *testing.T) {

	var buf bytes.Buffer
	logger := NewWriterLogger(slog.LevelInfo, &buf)

	logger.Audit(AuditEntry{
		Operation: OperationRevoke,
		Serial:    big.NewInt(255),
		Subject:   "/CN=leaf",
		Issuer:    "/CN=root",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "AUDIT", record["level"])
	assert.Equal(t, "revoke", record["operation"])
	assert.Equal(t, "ff", record["serial"])
	assert.Equal(t, "/CN=leaf", record["subject"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
