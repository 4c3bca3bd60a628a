package engine

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type rootScore[M any] struct {
	index int
	score MoveScore[M]
}

// GetBestMovesMulti is GetBestMoves with every root move searched as its own
// job on a pool of threads workers (0 means one per logical CPU). Root moves
// share a window, so a good score found under one root move prunes the
// searches still running under its siblings. Only finished root moves
// publish to the shared window; inner nodes read it but keep their own
// bounds local. It returns the same tied-best moves and scores as
// GetBestMoves, in the same order.
func GetBestMovesMulti[M any](board Board[M], maxDepth int, isMaximizersTurn bool, threads int) ([]MoveScore[M], Metrics) {
	maxDepth = resolveDepth(maxDepth)
	meta := &Metadata{}

	if board.Evaluate().IsOver() {
		return nil, meta.Snapshot()
	}

	rootMoves := board.ValidMoves(isMaximizersTurn)
	mustHaveMoves(len(rootMoves))

	pool := NewThreadPool(threads)
	defer pool.Close()
	log.Debug().Int("threads", pool.Size()).Int("max-depth", maxDepth).Msg("using-thread-pool")

	bounds := NewSharedBounds()
	var mu sync.Mutex
	results := make([]rootScore[M], 0, len(rootMoves))

	for i, m := range rootMoves {
		board.MakeMove(m)
		child := board.Clone()
		index, move := i, m
		pool.Execute(func() {
			score := alphabetaShared(child, maxDepth, 1, minScore, maxScore, !isMaximizersTurn, bounds, meta)
			bounds.publish(score, isMaximizersTurn)
			mu.Lock()
			results = append(results, rootScore[M]{index: index, score: MoveScore[M]{Move: move, Score: score}})
			mu.Unlock()
		})
		board.UnmakeMove(m)
	}

	for !allReported(&mu, &results, len(rootMoves)) {
		<-pool.Done()
	}

	mu.Lock()
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	scores := lo.Map(results, func(rs rootScore[M], _ int) MoveScore[M] { return rs.score })
	mu.Unlock()

	best := selectBest(scores, isMaximizersTurn)
	log.Debug().
		Int("root-moves", len(rootMoves)).
		Int("best-moves", len(best)).
		Int64("nodes", meta.Nodes()).
		Int64("prunes", meta.Prunes()).
		Int64("alpha", bounds.Alpha()).
		Int64("beta", bounds.Beta()).
		Msg("search-complete")
	return best, meta.Snapshot()
}

func allReported[M any](mu *sync.Mutex, results *[]rootScore[M], want int) bool {
	mu.Lock()
	defer mu.Unlock()
	return len(*results) >= want
}

// alphabetaShared is alphabeta where every prune test also honours the root
// window in bounds, read again before each decision.
func alphabetaShared[M any](board Board[M], depth, ply int, alpha, beta int64, isMax bool, bounds *SharedBounds, meta *Metadata) int64 {
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
			score = max(score, alphabetaShared(board, depth-1, ply+1, bounds.effectiveAlpha(alpha), bounds.effectiveBeta(beta), false, bounds, meta))
			board.UnmakeMove(m)
			alpha = max(alpha, score)
			if score >= bounds.effectiveBeta(beta) {
				meta.prune()
				break
			}
		}
		return score
	}

	score := maxScore
	for _, m := range moves {
		board.MakeMove(m)
		score = min(score, alphabetaShared(board, depth-1, ply+1, bounds.effectiveAlpha(alpha), bounds.effectiveBeta(beta), true, bounds, meta))
		board.UnmakeMove(m)
		beta = min(beta, score)
		if score <= bounds.effectiveAlpha(alpha) {
			meta.prune()
			break
		}
	}
	return score
}
