package dice

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestParseNormalizes(t *testing.T) {
	expr, err := Parse(" 2D6 + 1d4 - 2 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if expr.Raw != "2d6+1d4-2" {
		t.Fatalf("unexpected normalized form %q", expr.Raw)
	}
	if len(expr.Terms) != 3 {
		t.Fatalf("expected 3 terms, got %d", len(expr.Terms))
	}
	if !expr.Terms[0].Dice || expr.Terms[0].Count != 2 || expr.Terms[0].Faces != 6 {
		t.Fatalf("unexpected first term %+v", expr.Terms[0])
	}
	if expr.Terms[2].Dice || !expr.Terms[2].Negative || expr.Terms[2].Constant != 2 {
		t.Fatalf("unexpected constant term %+v", expr.Terms[2])
	}
}

func TestParseEmptyDefaultsToD20(t *testing.T) {
	expr, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if expr.Raw != "d20" {
		t.Fatalf("expected d20 default, got %q", expr.Raw)
	}
	if expr.Min() != 1 || expr.Max() != 20 {
		t.Fatalf("unexpected bounds [%d,%d]", expr.Min(), expr.Max())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"hello",
		"2d",
		"dd20",
		"1d20/2",
		"2*3",
		"+",
		"1d20+",
		"101d6",
		"1d1001",
		"0d6",
		"1d0",
	}
	for _, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("expected ErrInvalidExpression for %q, got %v", raw, err)
		}
	}
}

func TestEvaluateWithinBounds(t *testing.T) {
	expressions := []string{"d20", "2d6+3", "1d4+1d6-2", "3d8", "d20-5", "100d1000"}
	rng := newRNG(7)

	for _, raw := range expressions {
		expr, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		for i := 0; i < 200; i++ {
			result := expr.Roll(rng)
			if result.Total < expr.Min() || result.Total > expr.Max() {
				t.Fatalf("%q: total %d outside [%d,%d]", raw, result.Total, expr.Min(), expr.Max())
			}
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	first, err := Evaluate("3d6+2", newRNG(42))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := Evaluate("3d6+2", newRNG(42))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if first.Total != second.Total {
		t.Fatalf("same seed produced %d then %d", first.Total, second.Total)
	}
	if len(first.Rolls) != 3 {
		t.Fatalf("expected 3 rolls, got %d", len(first.Rolls))
	}
	if first.Modifier != 2 {
		t.Fatalf("expected modifier 2, got %d", first.Modifier)
	}
}

func TestCriticalFlags(t *testing.T) {
	rng := newRNG(1)
	sawSuccess, sawFailure, sawNeither := false, false, false

	for i := 0; i < 500; i++ {
		result, err := Evaluate("1d20", rng)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		draw := result.Rolls[0]
		if result.CriticalSuccess && result.CriticalFailure {
			t.Fatal("both critical flags set")
		}
		switch {
		case draw == 20:
			if !result.CriticalSuccess {
				t.Fatal("natural 20 without critical success")
			}
			sawSuccess = true
		case draw == 1:
			if !result.CriticalFailure {
				t.Fatal("natural 1 without critical failure")
			}
			sawFailure = true
		default:
			if result.CriticalSuccess || result.CriticalFailure {
				t.Fatalf("draw %d set a critical flag", draw)
			}
			sawNeither = true
		}
	}
	if !sawSuccess || !sawFailure || !sawNeither {
		t.Fatalf("coverage incomplete: success=%t failure=%t neither=%t", sawSuccess, sawFailure, sawNeither)
	}
}

func TestCriticalOnlyFirstSingleD20(t *testing.T) {
	// 2d20 never sets criticals regardless of draws.
	rng := newRNG(3)
	for i := 0; i < 200; i++ {
		result, err := Evaluate("2d20", rng)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if result.CriticalSuccess || result.CriticalFailure {
			t.Fatal("multi-die d20 term set a critical flag")
		}
	}

	// The first 1d20 term decides; a later one cannot override.
	expr, err := Parse("1d20+1d20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i := 0; i < 500; i++ {
		result := expr.Roll(rng)
		expectSuccess := result.Rolls[0] == 20
		expectFailure := result.Rolls[0] == 1
		if result.CriticalSuccess != expectSuccess || result.CriticalFailure != expectFailure {
			t.Fatalf("criticals %t/%t for rolls %v", result.CriticalSuccess, result.CriticalFailure, result.Rolls)
		}
	}
}

func TestEvaluateErrorMentionsInput(t *testing.T) {
	_, err := Evaluate("2x6", newRNG(1))
	if err == nil || !strings.Contains(err.Error(), "2x6") {
		t.Fatalf("expected error naming the input, got %v", err)
	}
}
