package engine

import "sync/atomic"

// SharedBounds is the root window shared by every root move searched in one
// concurrent call. Alpha only ever rises and beta only ever falls.
//
// The bounds hold root-level guarantees: a finished root move raises alpha
// (maximizing root) or lowers beta (minimizing root) to its score. Searches
// of the remaining root moves fold the current window into their own one
// point wider than published, so a move that ties the best score is still
// scored exactly and kept among the tied-best moves.
type SharedBounds struct {
	alpha atomic.Int64
	beta  atomic.Int64
}

func NewSharedBounds() *SharedBounds {
	b := &SharedBounds{}
	b.alpha.Store(minScore)
	b.beta.Store(maxScore)
	return b
}

func (b *SharedBounds) Alpha() int64 {
	return b.alpha.Load()
}

func (b *SharedBounds) Beta() int64 {
	return b.beta.Load()
}

// RaiseAlpha is an atomic fetch-max. It returns the previous value.
func (b *SharedBounds) RaiseAlpha(score int64) int64 {
	for {
		cur := b.alpha.Load()
		if score <= cur || b.alpha.CompareAndSwap(cur, score) {
			return cur
		}
	}
}

// LowerBeta is an atomic fetch-min. It returns the previous value.
func (b *SharedBounds) LowerBeta(score int64) int64 {
	for {
		cur := b.beta.Load()
		if score >= cur || b.beta.CompareAndSwap(cur, score) {
			return cur
		}
	}
}

// publish records a finished root move.
func (b *SharedBounds) publish(score int64, isMaximizersTurn bool) {
	if isMaximizersTurn {
		b.RaiseAlpha(score)
		return
	}
	b.LowerBeta(score)
}

// effectiveAlpha intersects a local alpha with the shared one.
func (b *SharedBounds) effectiveAlpha(alpha int64) int64 {
	shared := b.alpha.Load()
	if shared == minScore {
		return alpha
	}
	return max(alpha, shared-1)
}

// effectiveBeta intersects a local beta with the shared one.
func (b *SharedBounds) effectiveBeta(beta int64) int64 {
	shared := b.beta.Load()
	if shared == maxScore {
		return beta
	}
	return min(beta, shared+1)
}
