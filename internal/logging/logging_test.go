package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/config"
)

func TestWriterAlsoWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfchat.log")
	var console bytes.Buffer

	logger := zerolog.New(writer(config.LogConfig{File: path, MaxSizeMB: 1}, &console))
	logger.Info().Str("stage", "upload").Msg("indexed document")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"upload"`)
	assert.Contains(t, console.String(), "indexed document")
}

func TestSetupFallsBackToDebugLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	Setup(config.LogConfig{Level: "bogus"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Setup(config.LogConfig{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
