package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStreamsThenReadStreamsRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.txt")

	streams := []string{"2 123 45 0 67 1 ", "1 9 0 "}
	require.NoError(t, WriteStreams(path, streams))

	got, err := ReadStreams(path)
	require.NoError(t, err)
	assert.Equal(t, streams, got)
}

func TestReadStreamsMissingFile(t *testing.T) {
	_, err := ReadStreams(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
