package serving

import (
	"math"
	"testing"

	"github.com/modelplane/modelplane/internal/domain"
)

func tw(pairs ...any) []domain.TrafficWeight {
	out := make([]domain.TrafficWeight, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.TrafficWeight{
			RevisionID: pairs[i].(string),
			Weight:     pairs[i+1].(float64),
		})
	}
	return out
}

func sumOf(weights []domain.TrafficWeight) float64 {
	total := 0.0
	for _, w := range weights {
		total += w.Weight
	}
	return total
}

func TestNormalizeSumsToTarget(t *testing.T) {
	cases := []struct {
		name   string
		input  []domain.TrafficWeight
		target float64
	}{
		{"even split", tw("a", 50.0, "b", 50.0), 100},
		{"skewed", tw("a", 1.0, "b", 2.0, "c", 7.0), 100},
		{"thirds", tw("a", 33.33, "b", 33.33, "c", 33.33), 100},
		{"all zero", tw("a", 0.0, "b", 0.0, "c", 0.0), 100},
		{"single", tw("a", 42.0), 100},
		{"partial target", tw("a", 70.0, "b", 30.0), 80},
		{"tiny target", tw("a", 5.0, "b", 5.0, "c", 5.0), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input, tc.target)
			if len(got) != len(tc.input) {
				t.Fatalf("expected %d entries, got %d", len(tc.input), len(got))
			}
			if diff := math.Abs(sumOf(got) - tc.target); diff > 0.01 {
				t.Fatalf("sum %v deviates from target %v by %v", sumOf(got), tc.target, diff)
			}
		})
	}
}

func TestNormalizeDriftLandsOnLastEntry(t *testing.T) {
	got := Normalize(tw("a", 33.33, "b", 33.33, "c", 33.33), 100)
	if sumOf(got) != 100.00 {
		t.Fatalf("expected exact sum 100.00, got %v", sumOf(got))
	}
	if got[0].Weight != 33.33 || got[1].Weight != 33.33 {
		t.Fatalf("leading entries should stay at naive rounding: %+v", got)
	}
	if got[2].Weight != 33.34 {
		t.Fatalf("expected last entry to absorb drift as 33.34, got %v", got[2].Weight)
	}
}

func TestNormalizePreservesRatios(t *testing.T) {
	got := Normalize(tw("old-a", 70.0, "old-b", 30.0), 80)
	if got[0].Weight != 56.0 || got[1].Weight != 24.0 {
		t.Fatalf("expected 70:30 scaled to [56 24], got %+v", got)
	}
}

func TestNormalizeEvenSplitFallbackOnZeroSum(t *testing.T) {
	got := Normalize(tw("a", 0.0, "b", 0.0, "c", 0.0), 90)
	for _, w := range got {
		if w.Weight != 30.0 {
			t.Fatalf("expected even 30 each, got %+v", got)
		}
	}
}

func TestNormalizeDropsInvalidEntries(t *testing.T) {
	got := Normalize(tw("neg", -5.0, "nan", math.NaN(), "ok", 10.0), 100)
	if len(got) != 1 || got[0].RevisionID != "ok" || got[0].Weight != 100.0 {
		t.Fatalf("expected single surviving entry at 100, got %+v", got)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize(nil, 100); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
	if got := Normalize(tw("a", -1.0), 100); len(got) != 0 {
		t.Fatalf("expected all entries filtered, got %+v", got)
	}
}
