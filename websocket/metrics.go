package websocket

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	frameTypeLabel = "frame_type"
	queryTypeLabel = "query_type"
)

var (
	wsConnectedStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_streams",
		Help: "The number of connected query streams.",
	})

	wsReceivedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_received_frames",
		Help: "The number of query frames received from WebSocket connections.",
	})

	wsReceivedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	})

	wsSentFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_frames",
		Help: "The number of frames sent to WebSocket connections.",
	}, []string{
		frameTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		frameTypeLabel,
	})

	wsSendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket frame.",
	}, []string{
		frameTypeLabel,
	})

	wsStreamedObjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_streamed_objects",
		Help: "The number of objects streamed as query results.",
	}, []string{
		queryTypeLabel,
	})

	wsQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_query_latency",
		Help: "The time to stream the results of a query.",
	}, []string{
		queryTypeLabel,
	})
)

func instrumentReceivedFrame(n int) {
	wsReceivedFrames.Inc()
	wsReceivedBytes.Add(float64(n))
}

func instrumentSentFrame(frameType string, n int) {
	wsSentFrames.With(prometheus.Labels{frameTypeLabel: frameType}).Inc()
	wsSentBytes.With(prometheus.Labels{frameTypeLabel: frameType}).Add(float64(n))
}

func instrumentSendError(frameType string) {
	wsSendErrors.With(prometheus.Labels{frameTypeLabel: frameType}).Inc()
}

func instrumentStreamedQuery(queryType string, count int, start time.Time) {
	wsStreamedObjects.With(prometheus.Labels{queryTypeLabel: queryType}).Add(float64(count))
	wsQueryLatency.With(prometheus.Labels{queryTypeLabel: queryType}).Observe(time.Since(start).Seconds())
}
