// Package metrics exposes Prometheus instruments for the ground station.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PacketsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansat_packets_received_total",
		Help: "Total number of telemetry packets received over the link",
	})

	PacketsMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansat_packets_malformed_total",
		Help: "Total number of telemetry packets rejected by the decoder",
	})

	StatusMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cansat_status_messages_total",
		Help: "Total number of status lines received, by severity",
	}, []string{"severity"})

	CommandsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cansat_commands_sent_total",
		Help: "Total number of uplink commands written to the link, by command type",
	}, []string{"type"})

	LinkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cansat_link_errors_total",
		Help: "Total number of serial link errors, by operation",
	}, []string{"op"})

	LinkOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cansat_link_open",
		Help: "Whether the ground port is open (1) or closed (0)",
	})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cansat_bus_dropped_total",
		Help: "Total number of in-memory bus message drops by topic and reason",
	}, []string{"topic", "reason"})

	PersistDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cansat_persist_dropped_total",
		Help: "Total number of telemetry packets not stored because the persist queue was full",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cansat_stream_clients",
		Help: "Number of connected live stream clients",
	})

	LastAltitude = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cansat_altitude_meters",
		Help: "Altitude reported by the most recent telemetry packet",
	})
)

// IncStatus records a status line with the given severity ("info" or "error").
func IncStatus(severity string) {
	if severity == "" {
		severity = "info"
	}
	StatusMessagesTotal.WithLabelValues(severity).Inc()
}

// IncCommand records a command written to the link.
func IncCommand(cmdType string) {
	if cmdType == "" {
		cmdType = "unknown"
	}
	CommandsSentTotal.WithLabelValues(cmdType).Inc()
}

// IncLinkError records a link failure for the given operation (open, read, write, close).
func IncLinkError(op string) {
	LinkErrorsTotal.WithLabelValues(op).Inc()
}

// SetLinkOpen mirrors the link state.
func SetLinkOpen(open bool) {
	if open {
		LinkOpen.Set(1)
		return
	}
	LinkOpen.Set(0)
}

// IncBusDrop records a dropped bus message with a concrete reason.
func IncBusDrop(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
