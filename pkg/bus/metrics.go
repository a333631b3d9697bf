package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "mintfeed_queue_depth",
	Help: "Number of artifacts waiting in the artifact queue",
})

var queueCapacity = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "mintfeed_queue_capacity",
	Help: "Configured capacity of the artifact queue",
})

var queueRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mintfeed_queue_rejected_total",
	Help: "Total number of artifacts rejected because the queue was full or closed",
})
