package engine

import (
	"math"
	"testing"
)

func TestResolveDepth(t *testing.T) {
	if got := resolveDepth(0); got != math.MaxInt {
		t.Fatalf("expected unbounded depth, got %d", got)
	}
	if got := resolveDepth(4); got != 4 {
		t.Fatalf("expected depth 4, got %d", got)
	}
}

func TestBiasScorePrefersFastWinsAndSlowLosses(t *testing.T) {
	if biasScore(100, 1) != 99 || biasScore(-100, 1) != -99 {
		t.Fatalf("expected one ply to move scores by one, got %d and %d", biasScore(100, 1), biasScore(-100, 1))
	}
	if biasScore(100, 1) <= biasScore(100, 3) {
		t.Fatalf("expected a win in one ply to beat a win in three")
	}
	if biasScore(-100, 1) >= biasScore(-100, 3) {
		t.Fatalf("expected a loss in three plies to beat a loss in one")
	}
	if biasScore(0, 7) != 0 {
		t.Fatalf("expected draws to stay at zero")
	}
	if biasScore(5, 40) != 1 || biasScore(-5, 40) != -1 {
		t.Fatalf("expected the bias to keep the sign of the score")
	}
}

func TestMetadataSnapshot(t *testing.T) {
	meta := &Metadata{}
	meta.visit()
	meta.visit()
	meta.prune()
	if got := meta.Snapshot(); got != (Metrics{Nodes: 2, Prunes: 1}) {
		t.Fatalf("expected 2 nodes and 1 prune, got %+v", got)
	}
}
