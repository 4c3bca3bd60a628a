// Package engine implements a generic minimax search with alpha-beta pruning
// for two-player, zero-sum, perfect-information games. It returns every root
// move tied for the best score, either searched on the calling goroutine or
// spread over a worker pool with root bounds shared between the branches.
package engine

// Result is what a Board reports about its current position.
type Result interface {
	// IsOver reports whether the game has ended for any reason,
	// i.e. a player has won or the game is drawn.
	IsOver() bool

	// Score is only read when IsOver is true or the depth limit has been
	// reached. The maximizer seeks the greatest score, the minimizer the least.
	Score() int64
}

// Board is the capability a game has to provide to be searched.
//
// MakeMove and UnmakeMove mutate the board in place. The engine always
// unmakes the most recently made move first; moves handed to MakeMove come
// from ValidMoves and are never validated again.
type Board[M any] interface {
	// MakeMove applies a move that is valid for the current position.
	MakeMove(m M)

	// UnmakeMove reverts a move previously applied with MakeMove.
	UnmakeMove(m M)

	// ValidMoves returns every legal move for the given side. Returning an
	// illegal move corrupts the results, and a position that is not over
	// must have at least one move.
	ValidMoves(isMaximizer bool) []M

	// Evaluate scores the position independently of the side to move.
	Evaluate() Result

	// Clone returns an independent copy, used to hand a private position to
	// each concurrently searched root move.
	Clone() Board[M]
}

// MoveScore pairs a root move with the minimax value found for it.
type MoveScore[M any] struct {
	Move  M     `json:"move"`
	Score int64 `json:"score"`
}
