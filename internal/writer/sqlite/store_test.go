// internal/writer/sqlite/store_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/force-daq/internal/poller"
)

func TestStore_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")

	s, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.NotEmpty(t, s.RunID())

	at := time.Unix(1700000000, 123456789)
	err = s.Write("X", []poller.Batch{
		{Samples: []poller.Sample{
			{Channel: "X", Kind: poller.KindMessage, At: at, Text: "+001.50", Value: 1.5, Numeric: true},
			{Channel: "X", Kind: poller.KindMessage, At: at, Text: "ERR"},
		}},
		{Samples: []poller.Sample{
			{Channel: "X", Kind: poller.KindMessage, At: at, Text: "+002.50", Value: 2.5, Numeric: true},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Write("X", nil))

	recs, err := s.Records(context.Background(), "X")
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "+001.50", recs[0].Text)
	assert.True(t, recs[0].Value.Valid)
	assert.Equal(t, 1.5, recs[0].Value.Float64)
	assert.False(t, recs[1].Value.Valid)
	assert.Equal(t, "+002.50", recs[2].Text)
	assert.Equal(t, "message", recs[2].Kind)
	assert.True(t, at.Equal(recs[2].At))

	other, err := s.Records(context.Background(), "Y")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_ReopenKeepsRunsApart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")

	first, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Write("X", []poller.Batch{{Samples: []poller.Sample{{Text: "+001.00"}}}}))
	require.NoError(t, first.Close())

	second, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	defer second.Close()
	assert.NotEqual(t, first.RunID(), second.RunID())

	recs, err := second.Records(context.Background(), "X")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}
