package consensus

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/findings"
)

// Options tune the fuzzy matching pass. Zero values fall back to defaults.
type Options struct {
	// MinSpanOverlap is the smallest overlap fraction between two code spans
	// for them to be considered the same location.
	MinSpanOverlap float64
	// MinTitleSimilarity is the smallest token-set similarity between two
	// titles for them to be considered the same issue.
	MinTitleSimilarity float64
	// EnginePriority decides which engine's wording wins when merged
	// findings disagree. Earlier entries win.
	EnginePriority []string
}

func DefaultOptions() Options {
	return Options{
		MinSpanOverlap:     0.5,
		MinTitleSimilarity: 0.6,
		EnginePriority:     []string{"slither", "mythril", "echidna", "ecorisk"},
	}
}

// Engine deduplicates normalized findings across analysis engines. Findings
// reported by several engines merge into one record whose confidence reflects
// the independent agreement.
type Engine struct {
	opts   Options
	logger hclog.Logger
}

func New(logger hclog.Logger, opts Options) *Engine {
	def := DefaultOptions()
	if opts.MinSpanOverlap <= 0 {
		opts.MinSpanOverlap = def.MinSpanOverlap
	}
	if opts.MinTitleSimilarity <= 0 {
		opts.MinTitleSimilarity = def.MinTitleSimilarity
	}
	if len(opts.EnginePriority) == 0 {
		opts.EnginePriority = def.EnginePriority
	}
	return &Engine{opts: opts, logger: logger}
}

// Merge runs the two dedup passes and returns the consolidated findings in
// deterministic report order.
func (e *Engine) Merge(in []findings.Finding) []findings.Finding {
	if len(in) == 0 {
		return nil
	}

	groups := e.groupExact(in)
	groups = e.groupFuzzy(groups)

	out := make([]findings.Finding, 0, len(groups))
	for _, g := range groups {
		out = append(out, e.mergeGroup(g))
	}
	sortFindings(out)

	e.logger.Debug("consensus pass complete", "input", len(in), "output", len(out))
	return out
}

// groupExact buckets findings sharing a content hash.
func (e *Engine) groupExact(in []findings.Finding) [][]findings.Finding {
	byHash := make(map[string][]findings.Finding)
	var order []string
	for _, f := range in {
		if _, seen := byHash[f.ContentHash]; !seen {
			order = append(order, f.ContentHash)
		}
		byHash[f.ContentHash] = append(byHash[f.ContentHash], f)
	}

	groups := make([][]findings.Finding, 0, len(order))
	for _, h := range order {
		groups = append(groups, byHash[h])
	}
	return groups
}

// groupFuzzy unions exact groups whose representatives point at overlapping
// spans with similar titles. Only groups in the same category and file are
// compared.
func (e *Engine) groupFuzzy(groups [][]findings.Finding) [][]findings.Finding {
	type bucketKey struct {
		category findings.Category
		file     string
	}

	buckets := make(map[bucketKey][]int)
	for i, g := range groups {
		key := bucketKey{category: g[0].Category, file: g[0].Span.FilePath}
		buckets[key] = append(buckets[key], i)
	}

	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, members := range buckets {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if e.similar(groups[members[i]], groups[members[j]]) {
					union(members[i], members[j])
				}
			}
		}
	}

	merged := make(map[int][]findings.Finding)
	var order []int
	for i, g := range groups {
		root := find(i)
		if _, seen := merged[root]; !seen {
			order = append(order, root)
		}
		merged[root] = append(merged[root], g...)
	}

	out := make([][]findings.Finding, 0, len(order))
	for _, root := range order {
		out = append(out, merged[root])
	}
	return out
}

// similar reports whether any pair of findings across the two groups agrees on
// both location and wording.
func (e *Engine) similar(a, b []findings.Finding) bool {
	for _, fa := range a {
		for _, fb := range b {
			if fa.Span.OverlapFraction(fb.Span) < e.opts.MinSpanOverlap {
				continue
			}
			if tokenSimilarity(fa.Title, fb.Title) >= e.opts.MinTitleSimilarity {
				return true
			}
		}
	}
	return false
}

// mergeGroup collapses one group into a single finding. Severity is the
// maximum reported, the span is the tightest one, and confidence combines the
// per-engine maxima as independent signals.
func (e *Engine) mergeGroup(group []findings.Finding) findings.Finding {
	primary := group[0]
	for _, f := range group[1:] {
		if e.enginePriority(f.Engines) < e.enginePriority(primary.Engines) {
			primary = f
		}
	}

	merged := primary
	merged.Engines = engineUnion(group)
	merged.Confidence = combinedConfidence(group)

	for _, f := range group {
		merged.Severity = findings.MaxSeverity(merged.Severity, f.Severity)
		if tighter(f.Span, merged.Span) {
			merged.Span = f.Span
		}
		if merged.SWCID == "" {
			merged.SWCID = f.SWCID
		}
		if merged.CWEID == "" {
			merged.CWEID = f.CWEID
		}
	}

	merged.ContentHash = findings.ContentHash(merged.Category, merged.Span, merged.Title)
	return merged
}

func (e *Engine) enginePriority(engines []string) int {
	best := len(e.opts.EnginePriority)
	for _, name := range engines {
		for i, p := range e.opts.EnginePriority {
			if name == p && i < best {
				best = i
			}
		}
	}
	return best
}

// combinedConfidence treats each engine's strongest report as an independent
// signal: 1 - prod(1 - ci). Repeat reports from one engine never inflate the
// result past that engine's maximum.
func combinedConfidence(group []findings.Finding) float64 {
	perEngine := make(map[string]float64)
	for _, f := range group {
		for _, name := range f.Engines {
			if f.Confidence > perEngine[name] {
				perEngine[name] = f.Confidence
			}
		}
	}

	remainder := 1.0
	for _, c := range perEngine {
		remainder *= 1 - c
	}
	combined := 1 - remainder
	if combined > 1 {
		combined = 1
	}
	return combined
}

func engineUnion(group []findings.Finding) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, f := range group {
		for _, name := range f.Engines {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// tighter prefers the span covering fewer lines, then the earlier start.
func tighter(a, b findings.CodeSpan) bool {
	if a.Lines() != b.Lines() {
		return a.Lines() < b.Lines()
	}
	return a.StartLine < b.StartLine
}

// sortFindings orders a report deterministically: severity first, then
// confidence, then location, with the content hash as the final tiebreak.
func sortFindings(fs []findings.Finding) {
	sort.Slice(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Span.FilePath != b.Span.FilePath {
			return a.Span.FilePath < b.Span.FilePath
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		return a.ContentHash < b.ContentHash
	})
}
