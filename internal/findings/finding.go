package findings

// RawFinding is one tool-native finding before normalization. It is consumed
// by the normalizer and not persisted past it.
type RawFinding struct {
	Engine      string   `json:"engine"`
	RuleID      string   `json:"rule_id"`
	Severity    string   `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Span        CodeSpan `json:"span"`
	Confidence  float64  `json:"confidence"`
}

// Finding is the canonical, deduplicated vulnerability record, the terminal
// output of the pipeline. Immutable once produced by the consensus engine.
type Finding struct {
	ID          string   `json:"id"`
	Engines     []string `json:"engines"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Span        CodeSpan `json:"span"`
	Confidence  float64  `json:"confidence"`
	ContentHash string   `json:"content_hash"`
	SWCID       string   `json:"swc_id,omitempty"`
	CWEID       string   `json:"cwe_id,omitempty"`
}
