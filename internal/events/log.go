package events

import "github.com/hashicorp/go-hclog"

// LogPublisher writes progress events to the run log. Always installed so a
// run remains observable without any subscriber.
type LogPublisher struct {
	logger hclog.Logger
}

func NewLogPublisher(logger hclog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishStage(ev StageEvent) {
	p.logger.Info("stage event",
		"runID", ev.RunID, "stage", ev.Stage, "engine", ev.Engine,
		"status", ev.Status, "detail", ev.Detail, "seq", ev.Seq)
}

func (p *LogPublisher) PublishFinding(ev FindingEvent) {
	p.logger.Info("finding event",
		"runID", ev.RunID, "severity", ev.Finding.Severity,
		"category", ev.Finding.Category, "title", ev.Finding.Title,
		"file", ev.Finding.Span.FilePath, "seq", ev.Seq)
}

func (p *LogPublisher) Close() error {
	return nil
}
