package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mintfeed_stream_messages_total",
	Help: "Feed messages received, by how they were handled",
}, []string{"result"})

var connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mintfeed_stream_connect_attempts_total",
	Help: "Websocket connect attempts by outcome",
}, []string{"result"})

var connectionState = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "mintfeed_stream_state",
	Help: "Current subscriber state (0 disconnected, 1 connecting, 2 subscribed, 3 shutting down)",
})

var reconnectDelay = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "mintfeed_stream_reconnect_delay_seconds",
	Help: "Delay before the next reconnect attempt",
})
