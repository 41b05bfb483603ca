package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	rooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rooms",
			Help: "Number of rooms created since start.",
		},
	)
	MessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_delivered_total",
			Help: "Total frames handed to member connections.",
		},
	)
	MessagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_dropped_total",
			Help: "Total frames a member connection refused.",
		},
	)
	InboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_inbound_messages_total",
			Help: "Inbound frames by message type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, rooms, MessagesDelivered, MessagesDropped, InboundMessages)
}

func IncConnections() { wsConnections.Inc() }

func DecConnections() { wsConnections.Dec() }

func SetRooms(count int) { rooms.Set(float64(count)) }

func AddDelivered(count int) {
	if count > 0 {
		MessagesDelivered.Add(float64(count))
	}
}

func AddDropped(count int) {
	if count > 0 {
		MessagesDropped.Add(float64(count))
	}
}

func IncInbound(kind string) { InboundMessages.WithLabelValues(kind).Inc() }

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
