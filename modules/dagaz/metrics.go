package dagaz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultLabel = "result"

var (
	dagazQuadSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagaz_quad_samples",
		Help: "The number of quad samples received, by outcome.",
	}, []string{resultLabel})

	dagazQuadCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dagaz_quads",
		Help: "The number of quads indexed.",
	})

	dagazGroundQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagaz_ground_queries",
		Help: "The number of ground plane queries, by outcome.",
	}, []string{resultLabel})
)

func instrumentQuadSamples(received, inserted, quads int) {
	dagazQuadSamples.
		With(prometheus.Labels{resultLabel: "indexed"}).
		Add(float64(inserted))

	dagazQuadSamples.
		With(prometheus.Labels{resultLabel: "rejected"}).
		Add(float64(received - inserted))

	dagazQuadCount.Set(float64(quads))
}

func instrumentGroundQuery(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	dagazGroundQueries.
		With(prometheus.Labels{resultLabel: result}).
		Inc()
}
