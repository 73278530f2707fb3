// internal/link/jacobsa.go
package link

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

type jacobsaLink struct {
	rwc io.ReadWriteCloser
}

func openJacobsa(p Params) (Link, error) {
	parity, err := jacobsaParity(p.Parity)
	if err != nil {
		return nil, fmt.Errorf("link jacobsa: open %s: %w", p, err)
	}

	opts := serial.OpenOptions{
		PortName:              p.Port,
		BaudRate:              uint(p.Baud),
		DataBits:              uint(p.DataBits),
		StopBits:              uint(p.StopBits),
		ParityMode:            parity,
		InterCharacterTimeout: interCharTimeoutMs(p.Timeout),
		MinimumReadSize:       0,
	}

	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("link jacobsa: open %s: %w", p, err)
	}
	return &jacobsaLink{rwc: rwc}, nil
}

// interCharTimeoutMs converts a timeout into the driver's VTIME units:
// a multiple of 100ms, at least 100ms.
func interCharTimeoutMs(d time.Duration) uint {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 100
	}
	return uint((ms + 99) / 100 * 100)
}

func jacobsaParity(p string) (serial.ParityMode, error) {
	switch p {
	case "", "N":
		return serial.PARITY_NONE, nil
	case "E":
		return serial.PARITY_EVEN, nil
	case "O":
		return serial.PARITY_ODD, nil
	default:
		return serial.PARITY_NONE, fmt.Errorf("unsupported parity %q", p)
	}
}

// Read maps the VMIN=0 "no bytes before VTIME" result (0, io.EOF) to ErrTimeout.
func (l *jacobsaLink) Read(b []byte) (int, error) {
	n, err := l.rwc.Read(b)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) && len(b) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}

func (l *jacobsaLink) Write(b []byte) (int, error) {
	return l.rwc.Write(b)
}

func (l *jacobsaLink) Close() error {
	return l.rwc.Close()
}
