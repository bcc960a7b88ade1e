package websocket

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// NewTestingEnv starts a server streaming queries with s and returns a
// connected client. Logs are forwarded to the test until close is called.
func NewTestingEnv(t *testing.T, s *QueryStreamer) (*websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	server := httptest.NewServer(s.Handler())

	config, err := websocket.NewConfig(
		strings.ReplaceAll(server.URL, "http://", "ws://"),
		"http://localhost",
	)
	if err != nil {
		t.Fatalf("error initializing web socket: %s", err)
	}
	config.Header.Set("User-Agent", "ted")

	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("error dialing web socket: %s", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()

		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
	}
}

// SendQuery sends q as a JSON frame.
func SendQuery(conn *websocket.Conn, q QueryFrame) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return websocket.Message.Send(conn, string(b))
}

// ReceiveResults reads result frames until the done or error frame of a
// query.
func ReceiveResults(conn *websocket.Conn) ([]ResultFrame, error) {
	var frames []ResultFrame
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			return frames, err
		}

		var f ResultFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return frames, err
		}
		frames = append(frames, f)

		if f.Type == FrameTypeDone || f.Type == FrameTypeError {
			return frames, nil
		}
	}
}
