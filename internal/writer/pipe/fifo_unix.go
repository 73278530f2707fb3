// internal/writer/pipe/fifo_unix.go

//go:build unix

package pipe

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// openFIFO creates path as a FIFO when missing and opens it for writing
// without blocking on an absent reader.
func openFIFO(path string) (io.WriteCloser, error) {
	if err := ensureFIFO(path); err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, ErrNoReader
		}
		return nil, err
	}

	// Writes block like a regular pipe once a reader is attached.
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func ensureFIFO(path string) error {
	fi, err := os.Stat(path)
	switch {
	case err == nil:
		if fi.Mode()&fs.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a fifo", path)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return unix.Mkfifo(path, 0o600)
	default:
		return err
	}
}
