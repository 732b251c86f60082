package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {

	line, err := readLine(strings.NewReader("secret\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), line)

	line, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, []byte("no-newline"), line)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.0.0")
	assert.Contains(t, buf.String(), "Certificate Authority v1.0.0")
}
