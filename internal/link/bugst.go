// internal/link/bugst.go
package link

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// bugstLink wraps a go.bug.st port. That driver reports a read timeout as
// (0, nil), which is mapped to ErrTimeout.
type bugstLink struct {
	port serial.Port
}

func openBugst(p Params) (Link, error) {
	mode := &serial.Mode{
		BaudRate: p.Baud,
		DataBits: p.DataBits,
		Parity:   bugstParity(p.Parity),
		StopBits: serial.OneStopBit,
	}
	if p.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	port, err := serial.Open(p.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("link bugst: open %s: %w", p, err)
	}
	if p.Timeout > 0 {
		if err := port.SetReadTimeout(p.Timeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("link bugst: set timeout: %w", err)
		}
	}
	return &bugstLink{port: port}, nil
}

func bugstParity(p string) serial.Parity {
	switch p {
	case "E":
		return serial.EvenParity
	case "O":
		return serial.OddParity
	case "M":
		return serial.MarkParity
	case "S":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func (l *bugstLink) Read(b []byte) (int, error) {
	n, err := l.port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}

func (l *bugstLink) Write(b []byte) (int, error) {
	return l.port.Write(b)
}

func (l *bugstLink) Close() error {
	return l.port.Close()
}

// PortInfo describes one serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates serial ports with USB details where available.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("link: enumerate ports: %w", err)
	}

	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return out, nil
}
