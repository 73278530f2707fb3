// internal/writer/modbus/client_test.go
package modbus

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	unit    uint8
	addr    uint16
	payload []byte
	fail    error
	closed  bool
}

func (f *fakeConn) WriteRegisters(unitID uint8, addr uint16, payload []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.unit, f.addr, f.payload = unitID, addr, payload
	return nil
}

func (f *fakeConn) Close() error { f.closed = true; return nil }

type dialer struct {
	conns []*fakeConn
	errs  []error
	calls int
}

func (d *dialer) dial(string, time.Duration) (conn, error) {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return d.conns[i], nil
}

func newTestClient(t *testing.T, d *dialer) (*EndpointClient, *time.Time) {
	t.Helper()
	c, err := NewEndpointClient(Config{Endpoint: "127.0.0.1:502", RedialDelay: time.Second}, nil)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	c.dial = d.dial
	c.now = func() time.Time { return now }
	return c, &now
}

func TestWriteRegisters_DialsLazilyAndPacksBigEndian(t *testing.T) {
	fc := &fakeConn{}
	d := &dialer{conns: []*fakeConn{fc}}
	c, _ := newTestClient(t, d)

	assert.Zero(t, d.calls, "no dial before first write")

	require.NoError(t, c.WriteRegisters(3, 40, []uint16{0x4145, 0x70a4}))
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, uint8(3), fc.unit)
	assert.Equal(t, uint16(40), fc.addr)
	assert.Equal(t, []byte{0x41, 0x45, 0x70, 0xa4}, fc.payload)

	require.NoError(t, c.WriteRegisters(3, 40, []uint16{1, 2}))
	assert.Equal(t, 1, d.calls, "session reused")
}

func TestWriteRegisters_RedialIsRateLimited(t *testing.T) {
	fc := &fakeConn{}
	d := &dialer{
		conns: []*fakeConn{nil, fc},
		errs:  []error{errors.New("connection refused")},
	}
	c, now := newTestClient(t, d)

	err := c.WriteRegisters(1, 0, []uint16{1})
	assert.ErrorIs(t, err, ErrEndpointDown)

	*now = now.Add(500 * time.Millisecond)
	err = c.WriteRegisters(1, 0, []uint16{1})
	assert.ErrorIs(t, err, ErrEndpointDown)
	assert.Equal(t, 1, d.calls, "no dial inside the redial delay")

	*now = now.Add(600 * time.Millisecond)
	require.NoError(t, c.WriteRegisters(1, 0, []uint16{1}))
	assert.Equal(t, 2, d.calls)
}

func TestWriteRegisters_WriteErrorDropsSession(t *testing.T) {
	broken := &fakeConn{fail: errors.New("broken pipe")}
	fresh := &fakeConn{}
	d := &dialer{conns: []*fakeConn{broken, fresh}}
	c, now := newTestClient(t, d)

	require.Error(t, c.WriteRegisters(1, 0, []uint16{1}))
	assert.True(t, broken.closed)

	*now = now.Add(2 * time.Second)
	require.NoError(t, c.WriteRegisters(1, 0, []uint16{7}))
	assert.Equal(t, []byte{0, 7}, fresh.payload)

	require.NoError(t, c.Close())
	assert.True(t, fresh.closed)
}

func TestDialTCP_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err, "construction never dials")

	err = c.WriteRegisters(1, 0, []uint16{1})
	assert.ErrorIs(t, err, ErrEndpointDown)
}

func TestNewEndpointClient_RequiresEndpoint(t *testing.T) {
	_, err := NewEndpointClient(Config{}, nil)
	assert.Error(t, err)
}
