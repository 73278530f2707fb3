// internal/writer/pipe/fifo_unix_test.go

//go:build unix

package pipe

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpenFIFO_CreatesPipeAndReportsNoReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_data_pipe")

	_, err := openFIFO(path)
	assert.ErrorIs(t, err, ErrNoReader)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&fs.ModeNamedPipe)
}

func TestOpenFIFO_WithReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_data_pipe")
	require.NoError(t, ensureFIFO(path))

	r, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	require.NoError(t, err)
	defer r.Close()

	w, err := openFIFO(path)
	require.NoError(t, err)
	defer w.Close()

	frame := buildFrame([]string{"+001.00"})
	require.NoError(t, writeAll(w, frame))

	got := make([]byte, len(frame))
	n, err := r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, frame, got[:n])
}

func TestEnsureFIFO_RejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.Error(t, ensureFIFO(path))
}
