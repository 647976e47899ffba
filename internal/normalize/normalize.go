package normalize

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/findings"
)

// EngineMetadata is the slice of an engine adapter the normalizer needs:
// the translation tables from tool-native labels to the canonical vocabulary.
type EngineMetadata interface {
	Name() string
	SeverityMap() map[string]findings.Severity
	RuleCategories() map[string]findings.Category
	DefaultConfidence() float64
}

// Normalizer converts raw engine findings into canonical findings. Every
// output finding has a valid severity, a category from the closed vocabulary,
// a clamped 1-based span, a confidence in (0, 1], and a content hash.
type Normalizer struct {
	logger hclog.Logger
}

func New(logger hclog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

func (n *Normalizer) Normalize(meta EngineMetadata, raws []findings.RawFinding) []findings.Finding {
	out := make([]findings.Finding, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.normalizeOne(meta, raw))
	}
	return out
}

func (n *Normalizer) normalizeOne(meta EngineMetadata, raw findings.RawFinding) findings.Finding {
	severity := n.mapSeverity(meta, raw)
	category := n.mapCategory(meta, raw)

	span := raw.Span.Normalize()

	confidence := raw.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = meta.DefaultConfidence()
	}

	title := raw.Title
	if title == "" {
		title = raw.RuleID
	}

	f := findings.Finding{
		ID:          uuid.NewString(),
		Engines:     []string{meta.Name()},
		Severity:    severity,
		Category:    category,
		Title:       title,
		Description: raw.Description,
		Span:        span,
		Confidence:  confidence,
	}
	f.ContentHash = findings.ContentHash(f.Category, f.Span, f.Title)
	return f
}

func (n *Normalizer) mapSeverity(meta EngineMetadata, raw findings.RawFinding) findings.Severity {
	if sev, ok := meta.SeverityMap()[raw.Severity]; ok {
		return sev
	}
	if sev, ok := findings.ParseSeverity(raw.Severity); ok {
		return sev
	}
	n.logger.Warn("unknown severity label, downgrading to info",
		"engine", meta.Name(), "rule", raw.RuleID, "severity", raw.Severity)
	return findings.SeverityInfo
}

func (n *Normalizer) mapCategory(meta EngineMetadata, raw findings.RawFinding) findings.Category {
	if cat, ok := meta.RuleCategories()[raw.RuleID]; ok {
		return cat
	}
	return findings.ParseCategory(raw.RuleID)
}
