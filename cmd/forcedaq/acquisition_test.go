// cmd/forcedaq/acquisition_test.go
package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/force-daq/internal/config"
	"github.com/tamzrod/force-daq/internal/coordinator"
	"github.com/tamzrod/force-daq/internal/link/linktest"
	"github.com/tamzrod/force-daq/internal/poller"
	"github.com/tamzrod/force-daq/internal/status"
	"github.com/tamzrod/force-daq/internal/writer"
)

type recordingWriter struct {
	mu    sync.Mutex
	texts map[string][]string
}

func (r *recordingWriter) Write(channel string, batches []poller.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.texts == nil {
		r.texts = make(map[string][]string)
	}
	for _, b := range batches {
		r.texts[channel] = append(r.texts[channel], b.Texts()...)
	}
	return nil
}

func (r *recordingWriter) Close() error { return nil }

type recordingStatus struct {
	snaps []status.Snapshot
}

func (r *recordingStatus) WriteStatus(s status.Snapshot) error {
	r.snaps = append(r.snaps, s)
	return nil
}

func (r *recordingStatus) last() status.Snapshot { return r.snaps[len(r.snaps)-1] }

func asciiChannel(tag, port string) config.ChannelConfig {
	return config.ChannelConfig{
		Tag:      tag,
		Protocol: config.ProtocolASCII,
		Link:     config.LinkConfig{Port: port, Baud: 115200, TimeoutMs: 5},
		ASCII:    &config.ASCIIConfig{BatchSize: 2},
	}
}

func TestAcquisition_DrainDeliversAndTracksHealth(t *testing.T) {
	fc := &linktest.Factory{New: func(n int) *linktest.Fake {
		if n == 0 {
			return &linktest.Fake{Script: [][]byte{[]byte("+001.00\r+002.00\r+003.00\r")}, Timeout: time.Millisecond}
		}
		lost := &linktest.Fake{}
		_ = lost.Close()
		return lost
	}}

	coord := coordinator.New(nil, coordinator.WithOpener(fc.Open))
	require.NoError(t, coord.Start(context.Background(), []config.ChannelConfig{
		asciiChannel("X", "/dev/a"),
		asciiChannel("Y", "/dev/b"),
	}))

	out := &recordingWriter{}
	sx, sy := &recordingStatus{}, &recordingStatus{}
	acq := newAcquisition(coord, out, map[string]writer.StatusWriter{"X": sx, "Y": sy}, slog.Default())

	require.Eventually(t, func() bool {
		x, _ := coord.Status("X")
		y, _ := coord.Status("Y")
		return x.Messages >= 2 && y.Errors >= 1
	}, time.Second, time.Millisecond)

	acq.drain()

	assert.Equal(t, []string{"+001.00", "+002.00"}, out.texts["X"])
	assert.Equal(t, status.HealthOK, sx.last().Health)
	assert.Equal(t, status.HealthError, sy.last().Health)
	assert.NotZero(t, sy.last().LastErrorCode)

	acq.tick()
	assert.Equal(t, uint16(1), sy.last().SecondsInError)

	require.NoError(t, acq.finish())
	assert.Equal(t, []string{"+001.00", "+002.00", "+003.00"}, out.texts["X"], "partial batch delivered on stop")
	assert.Equal(t, status.HealthStopped, sx.last().Health)
	assert.Equal(t, status.HealthStopped, sy.last().Health)
}

func TestAcquisition_RunStopsOnContext(t *testing.T) {
	fc := &linktest.Factory{New: func(int) *linktest.Fake {
		return &linktest.Fake{Timeout: time.Millisecond}
	}}
	coord := coordinator.New(nil, coordinator.WithOpener(fc.Open))
	require.NoError(t, coord.Start(context.Background(), []config.ChannelConfig{asciiChannel("X", "/dev/a")}))

	sx := &recordingStatus{}
	acq := newAcquisition(coord, nil, map[string]writer.StatusWriter{"X": sx}, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	acq.run(ctx, 5*time.Millisecond)

	require.NotEmpty(t, sx.snaps)
	assert.Equal(t, status.HealthUnknown, sx.snaps[0].Health)
	require.NoError(t, acq.finish())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "channel", "X")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"channel":"X"`)

	_, err = newLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
acquisition:
  channels:
    - tag: X
      protocol: ascii
      link: {port: /dev/ttyUSB0, baud: 115200}
      ascii: {}
    - tag: Z
      protocol: modbus_rtu
      link: {port: /dev/ttyUSB1, baud: 9600}
      modbus: {slave_id: 1, plc_address: 40519}
`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"check", path})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "register=518")
	assert.Contains(t, out.String(), "delimiter=0x0d")
	assert.Contains(t, out.String(), "sinks: none")
	assert.Contains(t, out.String(), "config OK")
}
