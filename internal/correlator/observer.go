package correlator

import "time"

// Outcome classifies how a SendAndWait call ended.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// RequestStats describes one finished SendAndWait call.
type RequestStats struct {
	RequestTopic  string
	ResponseTopic string
	RequestType   string
	Outcome       Outcome
	Duration      time.Duration

	// Pending is the number of listeners still registered after cleanup.
	Pending int
}

// Observer receives a RequestStats for every finished SendAndWait call.
// Implementations must not block.
type Observer interface {
	ObserveRequest(stats RequestStats)
}

// MultiObserver fans out to several observers. Nil entries are skipped.
type MultiObserver []Observer

// ObserveRequest implements Observer.
func (m MultiObserver) ObserveRequest(stats RequestStats) {
	for _, o := range m {
		if o != nil {
			o.ObserveRequest(stats)
		}
	}
}
