package findings

// CodeSpan is a code location inside a source file. Lines and columns are
// 1-based inclusive; a zero column means "whole line".
type CodeSpan struct {
	FilePath    string `json:"file_path"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column,omitempty"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column,omitempty"`
}

// Normalize clamps the span to 1-based inclusive ranges so that spans coming
// from tools with 0-based or open-ended conventions compare equal.
func (s CodeSpan) Normalize() CodeSpan {
	if s.StartLine < 1 {
		s.StartLine = 1
	}
	if s.EndLine < s.StartLine {
		s.EndLine = s.StartLine
	}
	if s.StartColumn < 0 {
		s.StartColumn = 0
	}
	if s.EndColumn < 0 {
		s.EndColumn = 0
	}
	return s
}

// Lines returns the number of lines the span covers.
func (s CodeSpan) Lines() int {
	return s.EndLine - s.StartLine + 1
}

// OverlapFraction returns the shared line count relative to the smaller of the
// two spans. Spans in different files never overlap.
func (s CodeSpan) OverlapFraction(o CodeSpan) float64 {
	if s.FilePath != o.FilePath {
		return 0
	}
	lo := s.StartLine
	if o.StartLine > lo {
		lo = o.StartLine
	}
	hi := s.EndLine
	if o.EndLine < hi {
		hi = o.EndLine
	}
	if hi < lo {
		return 0
	}
	shared := hi - lo + 1
	smaller := s.Lines()
	if o.Lines() < smaller {
		smaller = o.Lines()
	}
	return float64(shared) / float64(smaller)
}
