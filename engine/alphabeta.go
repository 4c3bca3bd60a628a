package engine

import "math"

const (
	minScore int64 = math.MinInt64
	maxScore int64 = math.MaxInt64
)

// resolveDepth maps the "unbounded" depth limit 0 to the largest usable depth.
func resolveDepth(maxDepth int) int {
	if maxDepth <= 0 {
		return math.MaxInt
	}
	return maxDepth
}

// biasScore prefers quicker wins and slower losses: a winning score shrinks
// with every ply between the root and the scored position, a losing score
// grows. The bias never flips the sign of a score.
func biasScore(score int64, ply int) int64 {
	switch {
	case score > 0:
		return max(score-int64(ply), 1)
	case score < 0:
		return min(score+int64(ply), -1)
	default:
		return score
	}
}

func alphabeta[M any](board Board[M], depth, ply int, alpha, beta int64, isMax bool, meta *Metadata) int64 {
	meta.visit()
	result := board.Evaluate()
	if depth == 0 || result.IsOver() {
		return biasScore(result.Score(), ply)
	}

	moves := board.ValidMoves(isMax)

	if isMax {
		score := minScore
		for _, m := range moves {
			board.MakeMove(m)
			score = max(score, alphabeta(board, depth-1, ply+1, alpha, beta, false, meta))
			board.UnmakeMove(m)
			alpha = max(alpha, score)
			if score >= beta {
				meta.prune()
				break
			}
		}
		return score
	}

	score := maxScore
	for _, m := range moves {
		board.MakeMove(m)
		score = min(score, alphabeta(board, depth-1, ply+1, alpha, beta, true, meta))
		board.UnmakeMove(m)
		beta = min(beta, score)
		if score <= alpha {
			meta.prune()
			break
		}
	}
	return score
}
