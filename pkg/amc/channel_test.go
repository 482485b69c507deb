package amc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunkChannel hands out scripted chunks one Read at a time and reports
// readiness only while chunks remain, imitating a drive that trickles a
// frame onto the wire.
type chunkChannel struct {
	chunks  [][]byte
	polls   int
	pollErr error
}

func (c *chunkChannel) Read(p []byte) (int, error) {
	chunk := c.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		c.chunks[0] = chunk[n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunkChannel) Write(p []byte) (int, error) {
	return len(p), nil
}

func (c *chunkChannel) Poll(timeout time.Duration) (bool, error) {
	c.polls++
	if c.pollErr != nil {
		return false, c.pollErr
	}
	return len(c.chunks) > 0, nil
}

func TestReadExactAssemblesChunks(t *testing.T) {
	ch := &chunkChannel{chunks: [][]byte{{1}, {2, 3}, {4, 5, 6, 7}, {8}}}
	buf := make([]byte, 8)
	require.NoError(t, readExact(ch, buf, time.Millisecond))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf)
}

func TestReadExactShortReadWithinChunk(t *testing.T) {
	// one scripted chunk larger than the destination of a single Read
	ch := &chunkChannel{chunks: [][]byte{{1, 2, 3, 4}}}
	first := make([]byte, 2)
	require.NoError(t, readExact(ch, first, time.Millisecond))
	rest := make([]byte, 2)
	require.NoError(t, readExact(ch, rest, time.Millisecond))
	require.Equal(t, []byte{3, 4}, rest)
}

func TestReadExactTimesOut(t *testing.T) {
	ch := &chunkChannel{}
	err := readExact(ch, make([]byte, 4), time.Millisecond)
	require.Equal(t, ErrTimedOut, err)
	require.Equal(t, 1, ch.polls)
}

func TestReadExactTimesOutMidway(t *testing.T) {
	ch := &chunkChannel{chunks: [][]byte{{1, 2}}}
	err := readExact(ch, make([]byte, 4), time.Millisecond)
	require.Equal(t, ErrTimedOut, err)
}

func TestReadExactPollsBeforeEveryRead(t *testing.T) {
	ch := &chunkChannel{chunks: [][]byte{{1}, {2}, {3}}}
	require.NoError(t, readExact(ch, make([]byte, 3), time.Millisecond))
	require.Equal(t, 3, ch.polls)
}

func TestReadExactPollError(t *testing.T) {
	wantErr := errors.New("port gone")
	ch := &chunkChannel{pollErr: wantErr}
	err := readExact(ch, make([]byte, 1), time.Millisecond)
	require.Equal(t, wantErr, err)
}

func TestReadExactNeverBlocksWithoutData(t *testing.T) {
	ch := &chunkChannel{}
	done := make(chan error, 1)
	go func() {
		done <- readExact(ch, make([]byte, 1), time.Millisecond)
	}()
	select {
	case err := <-done:
		require.Equal(t, ErrTimedOut, err)
	case <-time.After(time.Second):
		t.Fatal("readExact blocked on a channel that never becomes readable")
	}
}
