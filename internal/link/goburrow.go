// internal/link/goburrow.go
package link

import (
	"errors"
	"fmt"

	"github.com/goburrow/serial"
)

type goburrowLink struct {
	port serial.Port
}

func openGoburrow(p Params) (Link, error) {
	port, err := serial.Open(&serial.Config{
		Address:  p.Port,
		BaudRate: p.Baud,
		DataBits: p.DataBits,
		StopBits: p.StopBits,
		Parity:   p.Parity,
		Timeout:  p.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("link goburrow: open %s: %w", p, err)
	}
	return &goburrowLink{port: port}, nil
}

func (l *goburrowLink) Read(b []byte) (int, error) {
	n, err := l.port.Read(b)
	if errors.Is(err, serial.ErrTimeout) {
		return n, ErrTimeout
	}
	return n, err
}

func (l *goburrowLink) Write(b []byte) (int, error) {
	return l.port.Write(b)
}

func (l *goburrowLink) Close() error {
	return l.port.Close()
}
