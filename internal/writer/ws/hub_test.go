// internal/writer/ws/hub_test.go
package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/force-daq/internal/poller"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, time.Millisecond)
	return conn
}

func batches() []poller.Batch {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []poller.Batch{{
		Channel: "X",
		Kind:    poller.KindMessage,
		At:      at,
		Samples: []poller.Sample{
			{Channel: "X", Kind: poller.KindMessage, At: at, Text: "+012.34", Value: 12.34, Numeric: true},
			{Channel: "X", Kind: poller.KindMessage, At: at, Text: "ERR"},
		},
	}}
}

func TestHub_BroadcastJSON(t *testing.T) {
	h, err := New(Config{}, nil)
	require.NoError(t, err)
	defer h.Close()

	conn := dial(t, h)
	require.NoError(t, h.Write("X", batches()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)

	var f Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	assert.Equal(t, "X", f.Channel)
	require.Len(t, f.Samples, 2)
	assert.Equal(t, "+012.34", f.Samples[0].Text)
	require.NotNil(t, f.Samples[0].Value)
	assert.Equal(t, 12.34, *f.Samples[0].Value)
	assert.Nil(t, f.Samples[1].Value)
	assert.Equal(t, "message", f.Samples[1].Kind)
}

func TestHub_BroadcastCBOR(t *testing.T) {
	h, err := New(Config{Format: FormatCBOR}, nil)
	require.NoError(t, err)
	defer h.Close()

	conn := dial(t, h)
	require.NoError(t, h.Write("X", batches()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)

	var f Frame
	require.NoError(t, cbor.Unmarshal(msg, &f))
	assert.Equal(t, []string{"+012.34", "ERR"}, []string{f.Samples[0].Text, f.Samples[1].Text})
}

func TestHub_ClientDisconnectIsRemoved(t *testing.T) {
	h, err := New(Config{}, nil)
	require.NoError(t, err)
	defer h.Close()

	conn := dial(t, h)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, time.Millisecond)
	assert.NoError(t, h.Write("X", batches()))
}

func TestHub_ListenAndClose(t *testing.T) {
	h, err := New(Config{Listen: "127.0.0.1:0", Path: "/live"}, nil)
	require.NoError(t, err)
	require.NotNil(t, h.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+h.Addr().String()+"/live", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.Close())
	assert.Zero(t, h.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	assert.NoError(t, h.Close())
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"}, nil)
	assert.Error(t, err)
}
