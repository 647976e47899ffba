package sink

import "github.com/hashicorp/go-hclog"

// MultiSink delivers the record to every configured sink. A failing sink is
// logged and skipped so one broken destination never loses the others.
type MultiSink struct {
	sinks  []Sink
	logger hclog.Logger
}

func NewMultiSink(logger hclog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Deliver(record *RunRecord) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Deliver(record); err != nil {
			m.logger.Error("sink delivery failed", "runID", record.RunID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
