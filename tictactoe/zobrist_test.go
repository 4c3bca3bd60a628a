package tictactoe

import "testing"

func TestHashDependsOnSide(t *testing.T) {
	a := New3x3('x', 'o')
	a.MakeMove(Move{'x', 0})
	b := New3x3('x', 'o')
	b.MakeMove(Move{'o', 0})
	if a.Hash() == b.Hash() {
		t.Fatalf("expected hash to differ for different owners of a cell")
	}
}

func TestMakeMoveUpdatesHash(t *testing.T) {
	game := New4x4('x', 'o')
	game.MakeMove(Move{'x', 5})
	game.MakeMove(Move{'o', 10})
	if game.Hash() != game.ComputeHash() {
		t.Fatalf("hash mismatch after make move: got %d want %d", game.Hash(), game.ComputeHash())
	}
}

func TestUnmakeRestoresHash(t *testing.T) {
	game := mustGame(t, 3, "x___o____", 'x', 'o')
	original := game.Hash()
	moves := game.ValidMoves(true)
	for _, m := range moves {
		game.MakeMove(m)
		game.UnmakeMove(m)
	}
	if game.Hash() != original {
		t.Fatalf("hash mismatch after undo: got %d want %d", game.Hash(), original)
	}
}

func TestZobristTablesAreStable(t *testing.T) {
	if GetZobrist(3) != GetZobrist(3) {
		t.Fatalf("expected table to be cached per size")
	}
	a := mustGame(t, 3, "x_o______", 'x', 'o')
	b := mustGame(t, 3, "x_o______", 'x', 'o')
	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal boards to hash equally")
	}
}
