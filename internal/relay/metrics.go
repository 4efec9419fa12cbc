package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doorbell_relay_messages_total",
		Help: "Messages routed through the relay.",
	})

	joinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doorbell_relay_joins_total",
		Help: "Room joins accepted by the relay.",
	})

	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doorbell_relay_connected_clients",
		Help: "Currently open websocket connections.",
	})
)
