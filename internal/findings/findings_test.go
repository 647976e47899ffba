package findings

import "testing"

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() <= ordered[i].Rank() {
			t.Fatalf("expected %s to rank above %s", ordered[i-1], ordered[i])
		}
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatalf("unknown severity must rank 0")
	}
}

func TestParseSeverityInformationalAlias(t *testing.T) {
	s, ok := ParseSeverity("Informational")
	if !ok || s != SeverityInfo {
		t.Fatalf("expected informational to parse as info, got %q ok=%v", s, ok)
	}
}

func TestParseCategoryUnknownMapsToOther(t *testing.T) {
	if got := ParseCategory("solc-version"); got != CategoryOther {
		t.Fatalf("expected other, got %q", got)
	}
	if got := ParseCategory("Reentrancy"); got != CategoryReentrancy {
		t.Fatalf("expected reentrancy, got %q", got)
	}
}

func TestSpanNormalizeClampsToOneBased(t *testing.T) {
	s := CodeSpan{FilePath: "Token.sol", StartLine: 0, EndLine: 0}.Normalize()
	if s.StartLine != 1 || s.EndLine != 1 {
		t.Fatalf("expected 1-1, got %d-%d", s.StartLine, s.EndLine)
	}

	s = CodeSpan{FilePath: "Token.sol", StartLine: 10, EndLine: 4}.Normalize()
	if s.EndLine != 10 {
		t.Fatalf("expected end clamped to start, got %d", s.EndLine)
	}
}

func TestSpanOverlapFraction(t *testing.T) {
	a := CodeSpan{FilePath: "Token.sol", StartLine: 10, EndLine: 19}
	b := CodeSpan{FilePath: "Token.sol", StartLine: 15, EndLine: 24}
	if got := a.OverlapFraction(b); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}

	c := CodeSpan{FilePath: "Vault.sol", StartLine: 10, EndLine: 19}
	if got := a.OverlapFraction(c); got != 0 {
		t.Fatalf("different files must not overlap, got %v", got)
	}

	// full containment of a single line counts as full overlap of the smaller span
	d := CodeSpan{FilePath: "Token.sol", StartLine: 12, EndLine: 12}
	if got := a.OverlapFraction(d); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestContentHashStableUnderTitleNoise(t *testing.T) {
	span := CodeSpan{FilePath: "Token.sol", StartLine: 49, EndLine: 49}
	h1 := ContentHash(CategoryReentrancy, span, "Reentrancy in withdraw()")
	h2 := ContentHash(CategoryReentrancy, span, "reentrancy in  withdraw")
	if h1 != h2 {
		t.Fatalf("expected equal hashes for equivalent titles")
	}

	h3 := ContentHash(CategoryArithmetic, span, "Reentrancy in withdraw()")
	if h1 == h3 {
		t.Fatalf("category must contribute to the hash")
	}
}

func TestStemTitleDropsPluralsAndStopwords(t *testing.T) {
	if got := StemTitle("Unchecked external calls in the transfer"); got != StemTitle("unchecked external call transfer") {
		t.Fatalf("expected equal stems, got %q", got)
	}
}
