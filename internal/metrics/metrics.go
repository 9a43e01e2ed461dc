// Package metrics holds the prometheus collectors shared by the transmitter
// and the actuator daemon.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	transmitMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "climber",
			Subsystem: "transmit",
			Name:      "messages_total",
			Help:      "Wire messages handed to the radio link.",
		},
		[]string{"kind", "result"},
	)
	receivePackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "climber",
			Subsystem: "receive",
			Name:      "packets_total",
			Help:      "Inbound packets by decoded kind.",
		},
		[]string{"kind"},
	)
	motorCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "climber",
			Subsystem: "motor",
			Name:      "commands_total",
			Help:      "Motor commands applied to the actuator driver.",
		},
		[]string{"command", "result"},
	)
	motorState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "climber",
			Subsystem: "motor",
			Name:      "state",
			Help:      "Current motor state (climb: 0 stop, 1 forward, -1 reverse; cut: 0 stop, 1 running).",
		},
		[]string{"motor"},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(transmitMessages, receivePackets, motorCommands, motorState)
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordTransmit(kind string, err error) {
	Register()
	transmitMessages.WithLabelValues(kind, result(err)).Inc()
}

func RecordPacket(kind string) {
	Register()
	receivePackets.WithLabelValues(kind).Inc()
}

func RecordCommand(command string, err error) {
	Register()
	motorCommands.WithLabelValues(command, result(err)).Inc()
}

func SetMotorState(motor string, value float64) {
	Register()
	motorState.WithLabelValues(motor).Set(value)
}
