package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mintfeed_fetch_results_total",
	Help: "Fetch step outcomes by stage and result category",
}, []string{"stage", "result"})

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "mintfeed_fetch_duration_seconds",
	Help:    "Duration of each fetch step",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
}, []string{"stage"})

func observe(stage Stage, start time.Time, err error) {
	fetchDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = CategoryOf(err)
	}
	fetchResults.WithLabelValues(string(stage), result).Inc()
}
