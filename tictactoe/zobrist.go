package tictactoe

import "sync"

// ZobristTable holds one key per (cell, side) for a board size.
type ZobristTable struct {
	size  int
	cells []uint64
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[int]*ZobristTable)}

// GetZobrist returns the table for size, building it on first use. Keys are
// derived from a fixed seed so hashes are stable across processes.
func GetZobrist(size int) *ZobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[size]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^ uint64(size)}
	table := &ZobristTable{size: size, cells: make([]uint64, size*size*2)}
	for i := range table.cells {
		table.cells[i] = rng.next()
	}
	zobristTables.tables[size] = table
	return table
}

func (z *ZobristTable) stone(pos int, maximizer bool) uint64 {
	idx := pos * 2
	if !maximizer {
		idx++
	}
	return z.cells[idx]
}

func (g *Game) stoneKey(pos int, player rune) uint64 {
	return g.keys.stone(pos, player == g.maximizer)
}

// ComputeHash hashes the board from scratch. MakeMove and UnmakeMove keep
// Hash in sync incrementally.
func (g *Game) ComputeHash() uint64 {
	z := g.keys
	var hash uint64
	for pos, c := range g.Cells {
		if c == Empty {
			continue
		}
		hash ^= z.stone(pos, c == g.maximizer)
	}
	return hash
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
