package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
)

// summary counts the queries of a stream and periodically logs them.
type summary struct {
	streamID string
	interval time.Duration

	closeWorker func()
	workerDone  chan struct{}

	mutex   sync.Mutex
	counter map[string]int
}

func startSummary(streamID string, interval time.Duration) *summary {
	ctx, cancel := context.WithCancel(context.Background())

	s := &summary{
		streamID:    streamID,
		interval:    interval,
		closeWorker: cancel,
		workerDone:  make(chan struct{}),
		counter:     make(map[string]int),
	}

	if interval <= 0 {
		close(s.workerDone)
		return s
	}

	go s.startWorker(ctx)
	return s
}

func (s *summary) startWorker(ctx context.Context) {
	defer close(s.workerDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.log()
		}
	}
}

func (s *summary) inc(queryType string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.counter[queryType]++
}

func (s *summary) close() {
	s.closeWorker()
	<-s.workerDone
	s.log()
}

func (s *summary) log() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.counter) == 0 {
		return
	}

	entry := logs.
		WithTag("stream_id", s.streamID).
		WithTag("time_interval", s.interval)

	for k, v := range s.counter {
		entry = entry.WithTag(k, v)
		delete(s.counter, k)
	}

	entry.Info("query stream summary")
}
