// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ErrEndpointDown is returned while waiting to redial a failed endpoint.
var ErrEndpointDown = errors.New("writer modbus: endpoint down")

// DefaultRedialDelay spaces dial attempts to an unreachable endpoint.
const DefaultRedialDelay = time.Second

type Config struct {
	Endpoint    string
	Timeout     time.Duration
	RedialDelay time.Duration // 0 = DefaultRedialDelay
}

// conn is one established Modbus TCP session.
type conn interface {
	WriteRegisters(unitID uint8, addr uint16, payload []byte) error
	Close() error
}

// EndpointClient writes holding registers on one Modbus TCP endpoint.
//
// Acquisition does not depend on the endpoint: the client dials lazily,
// drops the session on any write error and redials at most once per
// RedialDelay. Requests are serialized.
type EndpointClient struct {
	cfg  Config
	dial func(endpoint string, timeout time.Duration) (conn, error)
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	conn     conn
	lastDial time.Time
	down     bool
}

// NewEndpointClient returns a client without dialing. logger may be nil.
func NewEndpointClient(cfg Config, logger *slog.Logger) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}
	if cfg.RedialDelay <= 0 {
		cfg.RedialDelay = DefaultRedialDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EndpointClient{
		cfg:  cfg,
		dial: dialTCP,
		log:  logger.With("sink", "modbus_tcp", "endpoint", cfg.Endpoint),
		now:  time.Now,
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// WriteRegisters writes holding registers (FC 16) on unitID.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}

	if err := c.conn.WriteRegisters(unitID, addr, packRegisters(regs)); err != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.lastDial = c.now()
		c.markDown(err)
		return fmt.Errorf("writer modbus: unit=%d addr=%d: %w", unitID, addr, err)
	}
	return nil
}

func (c *EndpointClient) connect() error {
	if c.conn != nil {
		return nil
	}
	if !c.lastDial.IsZero() && c.now().Sub(c.lastDial) < c.cfg.RedialDelay {
		return ErrEndpointDown
	}

	c.lastDial = c.now()
	cn, err := c.dial(c.cfg.Endpoint, c.cfg.Timeout)
	if err != nil {
		c.markDown(err)
		return fmt.Errorf("%w: %v", ErrEndpointDown, err)
	}

	c.conn = cn
	if c.down {
		c.log.Info("modbus endpoint reconnected")
	}
	c.down = false
	return nil
}

// markDown logs the first failure of an outage only.
func (c *EndpointClient) markDown(err error) {
	if !c.down {
		c.log.Warn("modbus endpoint unavailable", "err", err, "redial_every", c.cfg.RedialDelay)
	}
	c.down = true
}

//
// ---- goburrow session ----
//

type tcpConn struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func dialTCP(endpoint string, timeout time.Duration) (conn, error) {
	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &tcpConn{handler: h, client: modbus.NewClient(h)}, nil
}

func (t *tcpConn) WriteRegisters(unitID uint8, addr uint16, payload []byte) error {
	t.handler.SlaveId = unitID
	_, err := t.client.WriteMultipleRegisters(addr, uint16(len(payload)/2), payload)
	return err
}

func (t *tcpConn) Close() error { return t.handler.Close() }

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
