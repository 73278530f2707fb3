// internal/link/link.go
package link

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ErrTimeout is returned by Read when the link timeout elapsed with no bytes.
// Drivers normalize their own timeout signalling to this value.
var ErrTimeout = errors.New("link: read timeout")

// ErrUnknownDriver is returned by Open for an unregistered driver name.
var ErrUnknownDriver = errors.New("link: unknown driver")

// Link is one open point-to-point serial link.
// Read returns at most len(p) bytes and never blocks beyond the link timeout.
type Link interface {
	io.ReadWriteCloser
}

// Params are the physical parameters of a link.
type Params struct {
	Port     string
	Baud     int
	DataBits int
	Parity   string // N, E, O, M, S
	StopBits int
	Timeout  time.Duration
}

func (p Params) String() string {
	return fmt.Sprintf("%s@%d/%d%s%d", p.Port, p.Baud, p.DataBits, p.Parity, p.StopBits)
}

// OpenFunc opens a link with the given parameters.
type OpenFunc func(p Params) (Link, error)

// DefaultDriver is used when a channel names no driver.
const DefaultDriver = "goburrow"

var drivers = map[string]OpenFunc{
	"goburrow": openGoburrow,
	"bugst":    openBugst,
	"jacobsa":  openJacobsa,
}

// parities lists the parity modes each driver can frame.
var parities = map[string]string{
	"goburrow": "NEO",
	"bugst":    "NEOMS",
	"jacobsa":  "NEO",
}

// SupportsParity reports whether driver frames parity p (N, E, O, M or S).
// An empty driver means DefaultDriver; an empty parity means N.
func SupportsParity(driver, p string) bool {
	if driver == "" {
		driver = DefaultDriver
	}
	if p == "" {
		p = "N"
	}
	return len(p) == 1 && strings.Contains(parities[driver], strings.ToUpper(p))
}

// Drivers lists the registered driver names.
func Drivers() []string {
	out := make([]string, 0, len(drivers))
	for name := range drivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasDriver reports whether name is a registered driver.
func HasDriver(name string) bool {
	_, ok := drivers[name]
	return ok
}

// Opener returns the OpenFunc for a driver name.
func Opener(driver string) (OpenFunc, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	fn, ok := drivers[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return fn, nil
}

// Open opens a link through the named driver.
func Open(driver string, p Params) (Link, error) {
	fn, err := Opener(driver)
	if err != nil {
		return nil, err
	}
	return fn(p)
}
