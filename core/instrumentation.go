package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-interview/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type sessionInstruments struct {
	turnsCommitted       metric.Int64Counter
	interruptions        metric.Int64Counter
	generationsCompleted metric.Int64Counter
	generationsFailed    metric.Int64Counter
	audioPackets         metric.Int64Counter
	audioBytes           metric.Int64Counter
	decisions            metric.Int64Counter
}

var instruments = newSessionInstruments()

func newSessionInstruments() sessionInstruments {
	// Creating an instrument only fails on an invalid name, the returned
	// instrument is a usable no-op in that case.
	turnsCommitted, _ := meter.Int64Counter("session.turns.committed",
		metric.WithDescription("User turns committed to the conversation."))
	interruptions, _ := meter.Int64Counter("session.interruptions",
		metric.WithDescription("Interrupt signals handled."))
	generationsCompleted, _ := meter.Int64Counter("session.generations.completed",
		metric.WithDescription("Responses generated to the end while still current."))
	generationsFailed, _ := meter.Int64Counter("session.generations.failed",
		metric.WithDescription("Responses that ended with an error."))
	audioPackets, _ := meter.Int64Counter("session.audio.packets",
		metric.WithDescription("Audio packets sent to clients."))
	audioBytes, _ := meter.Int64Counter("session.audio.bytes",
		metric.WithDescription("Audio bytes sent to clients."),
		metric.WithUnit("By"))
	decisions, _ := meter.Int64Counter("session.decisions",
		metric.WithDescription("Turn decisions, by status."))

	return sessionInstruments{
		turnsCommitted:       turnsCommitted,
		interruptions:        interruptions,
		generationsCompleted: generationsCompleted,
		generationsFailed:    generationsFailed,
		audioPackets:         audioPackets,
		audioBytes:           audioBytes,
		decisions:            decisions,
	}
}
