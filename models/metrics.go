package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	spaceLabel = "space"
	queryLabel = "query"
)

var (
	spaceObjectCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "space_objects",
		Help: "The number of objects stored in a space.",
	}, []string{spaceLabel})

	spaceCellCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "space_occupied_cells",
		Help: "The number of non-empty grid cells of a space.",
	}, []string{spaceLabel})

	spaceQueryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "space_queries_total",
		Help: "The total number of queries run against a space.",
	}, []string{spaceLabel, queryLabel})

	spaceQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "space_query_latency",
		Help: "The time to answer a space query.",
	}, []string{spaceLabel, queryLabel})
)

func instrumentOccupancy(space string, objects, cells int) {
	spaceObjectCount.
		With(prometheus.Labels{spaceLabel: space}).
		Set(float64(objects))

	spaceCellCount.
		With(prometheus.Labels{spaceLabel: space}).
		Set(float64(cells))
}

func instrumentQuery(space, query string, start time.Time) {
	labels := prometheus.Labels{
		spaceLabel: space,
		queryLabel: query,
	}

	spaceQueryCount.With(labels).Inc()
	spaceQueryLatency.With(labels).Observe(time.Since(start).Seconds())
}
