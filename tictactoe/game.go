// Package tictactoe provides k-in-a-row games on square boards (3x3 and
// 4x4) that satisfy the engine.Board contract.
package tictactoe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonah-saltzman/multithread-minimax/engine"
)

const (
	Empty    rune  = 0
	WinScore int64 = 100
)

var (
	ErrInvalidSize    = errors.New("tictactoe: board size must be 3 or 4")
	ErrInvalidPlayers = errors.New("tictactoe: players must be two distinct non-empty symbols")
	ErrInvalidBoard   = errors.New("tictactoe: cell count does not match board size")
	ErrInvalidCell    = errors.New("tictactoe: cell holds an unknown symbol")
)

var winLines = map[int][][]int{
	3: buildLines(3),
	4: buildLines(4),
}

// Move places Player's symbol on the cell at Position (row-major index).
type Move struct {
	Player   rune `json:"player"`
	Position int  `json:"position"`
}

type Result struct {
	over  bool
	score int64
}

func (r Result) IsOver() bool { return r.over }
func (r Result) Score() int64 { return r.score }

// Game is a Size x Size board where Size marks in a row win.
type Game struct {
	Cells     []rune
	size      int
	maximizer rune
	minimizer rune
	keys      *ZobristTable
	hash      uint64
}

func New(size int, maximizer, minimizer rune) (*Game, error) {
	if _, ok := winLines[size]; !ok {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if maximizer == Empty || minimizer == Empty || maximizer == minimizer {
		return nil, fmt.Errorf("%w: %q and %q", ErrInvalidPlayers, maximizer, minimizer)
	}
	return &Game{
		Cells:     make([]rune, size*size),
		size:      size,
		maximizer: maximizer,
		minimizer: minimizer,
		keys:      GetZobrist(size),
	}, nil
}

func New3x3(maximizer, minimizer rune) *Game {
	g, err := New(3, maximizer, minimizer)
	if err != nil {
		panic(err)
	}
	return g
}

func New4x4(maximizer, minimizer rune) *Game {
	g, err := New(4, maximizer, minimizer)
	if err != nil {
		panic(err)
	}
	return g
}

// FromCells builds a game from a row-major cell list. Cells must be Empty or
// one of the two player symbols.
func FromCells(size int, cells []rune, maximizer, minimizer rune) (*Game, error) {
	g, err := New(size, maximizer, minimizer)
	if err != nil {
		return nil, err
	}
	if len(cells) != size*size {
		return nil, fmt.Errorf("%w: got %d cells for size %d", ErrInvalidBoard, len(cells), size)
	}
	for i, c := range cells {
		if c != Empty && c != maximizer && c != minimizer {
			return nil, fmt.Errorf("%w: %q at %d", ErrInvalidCell, c, i)
		}
	}
	copy(g.Cells, cells)
	g.hash = g.ComputeHash()
	return g, nil
}

func (g *Game) Size() int { return g.size }

func (g *Game) Maximizer() rune { return g.maximizer }

func (g *Game) Minimizer() rune { return g.minimizer }

func (g *Game) Hash() uint64 { return g.hash }

func (g *Game) At(pos int) rune { return g.Cells[pos] }

// Player returns the symbol played by the given side.
func (g *Game) Player(isMax bool) rune {
	if isMax {
		return g.maximizer
	}
	return g.minimizer
}

func (g *Game) ValidMoves(isMaximizer bool) []Move {
	player := g.Player(isMaximizer)
	moves := make([]Move, 0, len(g.Cells))
	for i, c := range g.Cells {
		if c == Empty {
			moves = append(moves, Move{Player: player, Position: i})
		}
	}
	return moves
}

func (g *Game) MakeMove(m Move) {
	g.Cells[m.Position] = m.Player
	g.hash ^= g.stoneKey(m.Position, m.Player)
}

func (g *Game) UnmakeMove(m Move) {
	g.Cells[m.Position] = Empty
	g.hash ^= g.stoneKey(m.Position, m.Player)
}

func (g *Game) Evaluate() engine.Result {
	for _, line := range winLines[g.size] {
		first := g.Cells[line[0]]
		if first == Empty {
			continue
		}
		won := true
		for _, idx := range line[1:] {
			if g.Cells[idx] != first {
				won = false
				break
			}
		}
		if !won {
			continue
		}
		if first == g.maximizer {
			return Result{over: true, score: WinScore}
		}
		return Result{over: true, score: -WinScore}
	}
	for _, c := range g.Cells {
		if c == Empty {
			return Result{}
		}
	}
	return Result{over: true}
}

func (g *Game) Clone() engine.Board[Move] {
	return g.Copy()
}

func (g *Game) Copy() *Game {
	cp := *g
	cp.Cells = append([]rune(nil), g.Cells...)
	return &cp
}

// String renders one row per line, showing the index of every empty cell.
func (g *Game) String() string {
	width := len(strconv.Itoa(len(g.Cells) - 1))
	var sb strings.Builder
	for row := 0; row < g.size; row++ {
		cols := make([]string, g.size)
		for col := 0; col < g.size; col++ {
			pos := row*g.size + col
			cell := strconv.Itoa(pos)
			if g.Cells[pos] != Empty {
				cell = string(g.Cells[pos])
			}
			cols[col] = fmt.Sprintf("%-*s", width, cell)
		}
		sb.WriteString(strings.Join(cols, " "))
		if row != g.size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func buildLines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)
	diag := make([]int, 0, size)
	anti := make([]int, 0, size)
	for i := 0; i < size; i++ {
		row := make([]int, 0, size)
		col := make([]int, 0, size)
		for j := 0; j < size; j++ {
			row = append(row, i*size+j)
			col = append(col, j*size+i)
		}
		lines = append(lines, row, col)
		diag = append(diag, i*size+i)
		anti = append(anti, i*size+size-1-i)
	}
	return append(lines, diag, anti)
}
