package events

// MultiPublisher fans events out to several publishers.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) PublishStage(ev StageEvent) {
	for _, p := range m.publishers {
		p.PublishStage(ev)
	}
}

func (m *MultiPublisher) PublishFinding(ev FindingEvent) {
	for _, p := range m.publishers {
		p.PublishFinding(ev)
	}
}

func (m *MultiPublisher) Close() error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
