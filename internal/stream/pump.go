package stream

import (
	"github.com/pynay/LetterChain/internal/pipeline"
)

// Sink receives envelopes in order.
type Sink interface {
	Send(env Envelope) error
}

// Pump forwards every event from events to sink, then writes the end
// sentinel. It returns the terminal envelope, if one arrived. After a sink
// error the remaining events are drained without being sent so the producer
// can finish.
func Pump(events <-chan pipeline.Event, sink Sink) (Envelope, error) {
	var terminal Envelope
	var sendErr error

	for ev := range events {
		env := FromEvent(ev)
		if env.Terminal() {
			terminal = env
		}
		if sendErr != nil {
			continue
		}
		sendErr = sink.Send(env)
	}

	if sendErr != nil {
		return terminal, sendErr
	}
	return terminal, sink.Send(End())
}
