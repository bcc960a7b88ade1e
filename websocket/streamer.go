package websocket

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/aukilabs/cellgrid/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	cmnerrors "github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeInvalidFrame = "ws_invalid_frame"
	ErrTypeUnknownQuery = "ws_unknown_query"

	QueryTypeBox  = "box"
	QueryTypeBall = "ball"

	FrameTypeObject = "object"
	FrameTypeDone   = "done"
	FrameTypeError  = "error"

	defaultIdleTimeout  = time.Minute
	defaultWriteTimeout = 10 * time.Second

	DefaultMaxQueryResults = 10000
)

// QueryFrame is a query sent by a client.
type QueryFrame struct {
	Type      string    `json:"type"`
	RequestID uint32    `json:"request_id"`
	Min       []float64 `json:"min,omitempty"`
	Max       []float64 `json:"max,omitempty"`
	Center    []float64 `json:"center,omitempty"`
	Radius    float64   `json:"radius,omitempty"`
	Exact     *bool     `json:"exact,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// ResultFrame is a frame streamed back for a query. A query produces one
// object frame per match followed by either a done or an error frame.
type ResultFrame struct {
	Type      string         `json:"type"`
	RequestID uint32         `json:"request_id"`
	Object    *models.Object `json:"object,omitempty"`
	Count     int            `json:"count,omitempty"`
	Stopped   bool           `json:"stopped,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// QueryStreamer streams the results of space queries over WebSocket
// connections.
type QueryStreamer struct {
	Space *models.Space

	// The time a client can stay without sending a query before being
	// disconnected.
	IdleTimeout time.Duration

	// The maximum time to write a frame.
	WriteTimeout time.Duration

	// Whether ball queries are exact when the frame does not say.
	ExactBallQueries bool

	// The interval between stream summary logs. Summaries are only logged at
	// the end of a stream when zero.
	SummaryInterval time.Duration

	// The maximum number of objects streamed for one query. Queries matching
	// more are reported as stopped. DefaultMaxQueryResults is used when zero.
	MaxQueryResults int
}

// Handler returns the WebSocket server handling streams.
func (s *QueryStreamer) Handler() websocket.Server {
	return websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			s.Stream(conn.Request().Context(), conn)
		},
	}
}

// Stream reads queries from conn and streams their results until the
// connection is closed, stays idle, or ctx is done.
func (s *QueryStreamer) Stream(ctx context.Context, conn *websocket.Conn) {
	st := newStream(s, conn)
	defer st.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout()))

		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			st.disconnect(err)
			return
		}
		instrumentReceivedFrame(len(raw))

		var q QueryFrame
		if err := json.Unmarshal(raw, &q); err != nil {
			err = errors.New("decoding query frame failed").
				WithType(ErrTypeInvalidFrame).
				Wrap(err)
			if !st.sendError(q.RequestID, err) {
				return
			}
			continue
		}

		if !st.query(q) {
			return
		}
	}
}

func (s *QueryStreamer) idleTimeout() time.Duration {
	if s.IdleTimeout <= 0 {
		return defaultIdleTimeout
	}
	return s.IdleTimeout
}

func (s *QueryStreamer) maxQueryResults() int {
	if s.MaxQueryResults <= 0 {
		return DefaultMaxQueryResults
	}
	return s.MaxQueryResults
}

func (s *QueryStreamer) writeTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return defaultWriteTimeout
	}
	return s.WriteTimeout
}

type stream struct {
	*QueryStreamer

	id      string
	conn    *websocket.Conn
	summary *summary
	sendErr error
}

func newStream(s *QueryStreamer, conn *websocket.Conn) *stream {
	st := &stream{
		QueryStreamer: s,
		id:            uuid.NewString(),
		conn:          conn,
	}
	st.summary = startSummary(st.id, s.SummaryInterval)

	wsConnectedStreams.Inc()
	logs.WithTag("stream_id", st.id).
		WithTag("remote_addr", remoteAddr(conn)).
		Info("query stream opened")
	return st
}

// query runs q and streams its results. It returns false when the
// connection can no longer be written to.
func (st *stream) query(q QueryFrame) bool {
	start := time.Now()

	objects, completed, err := st.collect(q)
	if err != nil {
		return st.sendError(q.RequestID, err)
	}

	// Frames are written once the space is unlocked so a slow client never
	// holds it.
	for i := range objects {
		if !st.send(ResultFrame{
			Type:      FrameTypeObject,
			RequestID: q.RequestID,
			Object:    &objects[i],
		}) {
			return false
		}
	}

	count := len(objects)
	st.summary.inc(q.Type)
	instrumentStreamedQuery(q.Type, count, start)

	logs.WithTag("stream_id", st.id).
		WithTag("request_id", q.RequestID).
		WithTag("query_type", q.Type).
		WithTag("count", count).
		WithTag("stopped", !completed).
		Debug("query streamed")

	return st.send(ResultFrame{
		Type:      FrameTypeDone,
		RequestID: q.RequestID,
		Count:     count,
		Stopped:   !completed,
	})
}

// collect copies up to the query limit of matching objects. It reports false
// when the limit cut the query short.
func (st *stream) collect(q QueryFrame) ([]models.Object, bool, error) {
	limit := st.maxQueryResults()
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}

	var objects []models.Object
	visit := func(o models.Object) bool {
		objects = append(objects, o)
		return len(objects) < limit
	}

	switch q.Type {
	case QueryTypeBox:
		completed, err := st.Space.VisitBox(q.Min, q.Max, visit)
		return objects, completed, err

	case QueryTypeBall:
		exact := st.ExactBallQueries
		if q.Exact != nil {
			exact = *q.Exact
		}
		completed, err := st.Space.VisitBall(q.Center, q.Radius, exact, visit)
		return objects, completed, err

	default:
		return nil, false, errors.New("unknown query type").
			WithType(ErrTypeUnknownQuery).
			WithTag("query_type", q.Type)
	}
}

func (st *stream) sendError(requestID uint32, err error) bool {
	logs.WithTag("stream_id", st.id).
		WithTag("request_id", requestID).
		Warn(err)

	return st.send(ResultFrame{
		Type:      FrameTypeError,
		RequestID: requestID,
		ErrorType: errors.Type(err),
		Error:     err.Error(),
	})
}

// send writes f to the connection. Once a send failed every following send
// fails.
func (st *stream) send(f ResultFrame) bool {
	if st.sendErr != nil {
		return false
	}

	b, err := json.Marshal(f)
	if err != nil {
		st.sendErr = errors.New("encoding result frame failed").Wrap(err)
		logs.Error(st.sendErr)
		return false
	}

	st.conn.SetWriteDeadline(time.Now().Add(st.writeTimeout()))
	if err := websocket.Message.Send(st.conn, string(b)); err != nil {
		st.sendErr = err
		instrumentSendError(f.Type)
		if !isClosed(err) {
			logs.WithTag("stream_id", st.id).
				WithTag("frame_type", f.Type).
				Error(errors.New("sending frame failed").Wrap(err))
		}
		return false
	}

	instrumentSentFrame(f.Type, len(b))
	return true
}

func (st *stream) disconnect(err error) {
	if err != nil && !isClosed(err) && !isTimeout(err) {
		logs.WithTag("stream_id", st.id).
			Error(errors.New("receiving query frame failed").Wrap(err))
	}
}

func (st *stream) close() {
	wsConnectedStreams.Dec()
	st.summary.close()

	logs.WithTag("stream_id", st.id).
		Info("query stream closed")
}

func remoteAddr(conn *websocket.Conn) string {
	if req := conn.Request(); req != nil {
		return req.RemoteAddr
	}
	return ""
}

func isClosed(err error) bool {
	return cmnerrors.Is(err, io.EOF) || cmnerrors.Is(err, net.ErrClosed)
}

func isTimeout(err error) bool {
	return cmnerrors.Is(err, os.ErrDeadlineExceeded)
}
