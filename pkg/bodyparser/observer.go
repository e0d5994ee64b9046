package bodyparser

import "time"

// Outcome classifies a decode attempt
type Outcome string

const (
	// OutcomeDecoded means the decoder returned without error
	OutcomeDecoded Outcome = "decoded"
	// OutcomeFailed means the decoder reported an error; its value was still attached
	OutcomeFailed Outcome = "failed"
	// OutcomePanicked means the decoder panicked and nothing was attached
	OutcomePanicked Outcome = "panicked"
	// OutcomeSkipped means a decoder matched but the body could not be buffered
	OutcomeSkipped Outcome = "skipped"
)

// Observer receives the result of every decode attempt
type Observer interface {
	ObserveDecode(contentType string, outcome Outcome, bodySize int, duration time.Duration)
}

// NopObserver discards observations
type NopObserver struct{}

// ObserveDecode implements Observer
func (NopObserver) ObserveDecode(string, Outcome, int, time.Duration) {}
