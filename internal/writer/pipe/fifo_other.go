// internal/writer/pipe/fifo_other.go

//go:build !unix

package pipe

import (
	"errors"
	"io"
)

func openFIFO(string) (io.WriteCloser, error) {
	return nil, errors.New("named pipes are not supported on this platform")
}
