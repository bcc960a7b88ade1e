package websocket

import (
	"testing"
	"time"

	"github.com/aukilabs/cellgrid/grid"
	"github.com/aukilabs/cellgrid/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestStreamer(t *testing.T) *QueryStreamer {
	space, err := models.NewSpace(t.Name(), []float64{1, 1})
	require.NoError(t, err)

	for _, p := range [][]float64{{0.5, 0.5}, {0.9, 0.9}, {1.5, 0.5}, {5.5, 5.5}} {
		_, err := space.Add(p)
		require.NoError(t, err)
	}

	return &QueryStreamer{
		Space:           space,
		IdleTimeout:     time.Minute,
		SummaryInterval: time.Millisecond * 10,
	}
}

func TestQueryStreamerBox(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestStreamer(t))
	defer close()

	err := SendQuery(conn, QueryFrame{
		Type:      QueryTypeBox,
		RequestID: 1,
		Min:       []float64{0, 0},
		Max:       []float64{1.9, 0.9},
	})
	require.NoError(t, err)

	frames, err := ReceiveResults(conn)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	for _, f := range frames[:3] {
		require.Equal(t, FrameTypeObject, f.Type)
		require.EqualValues(t, 1, f.RequestID)
		require.NotNil(t, f.Object)
	}
	require.Equal(t, grid.Index{0, 0}, frames[0].Object.Cell)
	require.Equal(t, grid.Index{0, 0}, frames[1].Object.Cell)
	require.Equal(t, grid.Index{1, 0}, frames[2].Object.Cell)

	done := frames[3]
	require.Equal(t, FrameTypeDone, done.Type)
	require.Equal(t, 3, done.Count)
	require.False(t, done.Stopped)
}

func TestQueryStreamerLimit(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestStreamer(t))
	defer close()

	err := SendQuery(conn, QueryFrame{
		Type:      QueryTypeBox,
		RequestID: 2,
		Min:       []float64{0, 0},
		Max:       []float64{9, 9},
		Limit:     2,
	})
	require.NoError(t, err)

	frames, err := ReceiveResults(conn)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	done := frames[2]
	require.Equal(t, FrameTypeDone, done.Type)
	require.Equal(t, 2, done.Count)
	require.True(t, done.Stopped)
}

func TestQueryStreamerBall(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestStreamer(t))
	defer close()

	t.Run("cell precision", func(t *testing.T) {
		err := SendQuery(conn, QueryFrame{
			Type:      QueryTypeBall,
			RequestID: 3,
			Center:    []float64{0.5, 0.5},
			Radius:    0.2,
		})
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Equal(t, 2, frames[len(frames)-1].Count)
	})

	t.Run("exact", func(t *testing.T) {
		exact := true
		err := SendQuery(conn, QueryFrame{
			Type:      QueryTypeBall,
			RequestID: 4,
			Center:    []float64{0.5, 0.5},
			Radius:    0.2,
			Exact:     &exact,
		})
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Len(t, frames, 2)
		require.Equal(t, []float64{0.5, 0.5}, frames[0].Object.Point)
		require.Equal(t, 1, frames[1].Count)
	})
}

func TestQueryStreamerErrors(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestStreamer(t))
	defer close()

	t.Run("invalid frame", func(t *testing.T) {
		err := websocket.Message.Send(conn, "{not json")
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Len(t, frames, 1)
		require.Equal(t, FrameTypeError, frames[0].Type)
		require.Equal(t, ErrTypeInvalidFrame, frames[0].ErrorType)
	})

	t.Run("unknown query", func(t *testing.T) {
		err := SendQuery(conn, QueryFrame{Type: "cone", RequestID: 5})
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Equal(t, ErrTypeUnknownQuery, frames[0].ErrorType)
		require.EqualValues(t, 5, frames[0].RequestID)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		err := SendQuery(conn, QueryFrame{
			Type:      QueryTypeBox,
			RequestID: 6,
			Min:       []float64{0},
			Max:       []float64{1},
		})
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Equal(t, grid.ErrTypeDimensionMismatch, frames[0].ErrorType)
	})

	t.Run("stream continues after errors", func(t *testing.T) {
		err := SendQuery(conn, QueryFrame{
			Type:      QueryTypeBox,
			RequestID: 7,
			Min:       []float64{5, 5},
			Max:       []float64{5, 5},
		})
		require.NoError(t, err)

		frames, err := ReceiveResults(conn)
		require.NoError(t, err)
		require.Len(t, frames, 2)
		require.Equal(t, 1, frames[1].Count)
	})
}

func TestQueryStreamerIdleTimeout(t *testing.T) {
	s := newTestStreamer(t)
	s.IdleTimeout = time.Millisecond * 50

	conn, close := NewTestingEnv(t, s)
	defer close()

	var raw []byte
	err := websocket.Message.Receive(conn, &raw)
	require.Error(t, err)
}

func TestQueryStreamerStalledClientDoesNotLockSpace(t *testing.T) {
	space, err := models.NewSpace(t.Name(), []float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)

	point := []float64{0.123456789, 0.123456789, 0.123456789, 0.123456789, 0.123456789, 0.123456789, 0.123456789, 0.123456789}
	for range 50000 {
		_, err := space.Add(point)
		require.NoError(t, err)
	}

	s := &QueryStreamer{
		Space:           space,
		IdleTimeout:     time.Minute,
		WriteTimeout:    time.Minute,
		MaxQueryResults: 50000,
	}
	conn, close := NewTestingEnv(t, s)
	defer close()

	// The client never reads the results.
	err = SendQuery(conn, QueryFrame{
		Type:      QueryTypeBall,
		RequestID: 1,
		Center:    point,
		Radius:    1,
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 200)

	added := make(chan error, 1)
	go func() {
		_, err := space.Add([]float64{9, 9, 9, 9, 9, 9, 9, 9})
		added <- err
	}()

	select {
	case err := <-added:
		require.NoError(t, err)
	case <-time.After(time.Second * 2):
		t.Fatal("adding an object blocked behind a stalled stream")
	}

	objects, err := space.QueryBox(point, point, 1)
	require.NoError(t, err)
	require.Len(t, objects, 1)
}

func TestQueryStreamerMaxQueryResults(t *testing.T) {
	s := newTestStreamer(t)
	s.MaxQueryResults = 1

	conn, close := NewTestingEnv(t, s)
	defer close()

	err := SendQuery(conn, QueryFrame{
		Type:      QueryTypeBox,
		RequestID: 8,
		Min:       []float64{0, 0},
		Max:       []float64{9, 9},
		Limit:     3,
	})
	require.NoError(t, err)

	frames, err := ReceiveResults(conn)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, 1, frames[1].Count)
	require.True(t, frames[1].Stopped)
}
