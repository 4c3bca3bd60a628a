package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrNoValidMoves is raised (as a panic) when a position that is not over
// reports no legal moves, which means the Board implementation is broken.
var ErrNoValidMoves = errors.New("engine: no valid moves in a position that is not over")

// GetBestMoves returns every move for the side to play whose minimax value
// ties for the best, together with the work done to find them. maxDepth
// counts the plies searched after each root move; 0 searches until every line
// reaches a terminal position. The search runs on the calling goroutine.
func GetBestMoves[M any](board Board[M], maxDepth int, isMaximizersTurn bool) ([]MoveScore[M], Metrics) {
	maxDepth = resolveDepth(maxDepth)
	meta := &Metadata{}

	if board.Evaluate().IsOver() {
		return nil, meta.Snapshot()
	}

	rootMoves := board.ValidMoves(isMaximizersTurn)
	mustHaveMoves(len(rootMoves))

	scores := make([]MoveScore[M], 0, len(rootMoves))
	for _, m := range rootMoves {
		board.MakeMove(m)
		score := alphabeta(board, maxDepth, 1, minScore, maxScore, !isMaximizersTurn, meta)
		board.UnmakeMove(m)
		scores = append(scores, MoveScore[M]{Move: m, Score: score})
	}

	best := selectBest(scores, isMaximizersTurn)
	log.Debug().
		Int("root-moves", len(rootMoves)).
		Int("best-moves", len(best)).
		Int64("nodes", meta.Nodes()).
		Int64("prunes", meta.Prunes()).
		Msg("search-complete")
	return best, meta.Snapshot()
}

// selectBest orders the scores best first for the side to play and keeps the
// ones tied with the first. Equal scores keep their move generation order.
func selectBest[M any](scores []MoveScore[M], isMaximizersTurn bool) []MoveScore[M] {
	mustHaveMoves(len(scores))
	sort.SliceStable(scores, func(i, j int) bool {
		if isMaximizersTurn {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Score < scores[j].Score
	})
	highScore := scores[0].Score
	return lo.Filter(scores, func(ms MoveScore[M], _ int) bool {
		return ms.Score == highScore
	})
}

func mustHaveMoves(n int) {
	if n == 0 {
		panic(fmt.Errorf("%w: evaluate reported the game is still running", ErrNoValidMoves))
	}
}
