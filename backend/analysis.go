package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/jonah-saltzman/multithread-minimax/engine"
	"github.com/jonah-saltzman/multithread-minimax/tictactoe"
)

const (
	modeSingle = "single"
	modeMulti  = "multi"
)

var (
	errInvalidMode   = errors.New("mode must be single or multi")
	errInvalidSymbol = errors.New("symbols must be exactly one character")
	errInvalidDepth  = errors.New("depth must not be negative")
	errInvalidHash   = errors.New("invalid hash")
)

type analyzeRequest struct {
	Size           int      `json:"size"`
	Cells          []string `json:"cells"`
	Maximizer      string   `json:"maximizer"`
	Minimizer      string   `json:"minimizer"`
	MaximizersTurn bool     `json:"maximizers_turn"`
	Depth          *int     `json:"depth,omitempty"`
	Threads        *int     `json:"threads,omitempty"`
	Mode           string   `json:"mode,omitempty"`
}

type moveDTO struct {
	Position int    `json:"position"`
	Player   string `json:"player"`
	Score    int64  `json:"score"`
}

type analyzeResponse struct {
	Moves          []moveDTO `json:"moves"`
	Nodes          int64     `json:"nodes"`
	Prunes         int64     `json:"prunes"`
	ElapsedMs      float64   `json:"elapsed_ms"`
	Cached         bool      `json:"cached"`
	Hash           string    `json:"hash"`
	Over           bool      `json:"over"`
	Depth          int       `json:"depth"`
	Mode           string    `json:"mode"`
	MaximizersTurn bool      `json:"maximizers_turn"`
}

// position is a validated analyze request.
type position struct {
	game           *tictactoe.Game
	maximizersTurn bool
	depth          int
	threads        int
	mode           string
}

func (p position) key() cacheKey {
	return cacheKey{
		Hash:           p.game.Hash(),
		Size:           p.game.Size(),
		MaximizersTurn: p.maximizersTurn,
		Depth:          p.depth,
		Mode:           p.mode,
	}
}

// position validates the request and fills unset fields from cfg.
func (req analyzeRequest) position(cfg Config) (position, error) {
	maximizer, err := parseSymbol(req.Maximizer)
	if err != nil {
		return position{}, fmt.Errorf("maximizer: %w", err)
	}
	minimizer, err := parseSymbol(req.Minimizer)
	if err != nil {
		return position{}, fmt.Errorf("minimizer: %w", err)
	}
	cells := make([]rune, len(req.Cells))
	for i, raw := range req.Cells {
		if raw == "" || raw == " " || raw == "_" {
			cells[i] = tictactoe.Empty
			continue
		}
		c, err := parseSymbol(raw)
		if err != nil {
			return position{}, fmt.Errorf("cell %d: %w", i, err)
		}
		cells[i] = c
	}
	game, err := tictactoe.FromCells(req.Size, cells, maximizer, minimizer)
	if err != nil {
		return position{}, err
	}

	depth := defaultDepth(cfg, game.Size())
	if req.Depth != nil {
		depth = *req.Depth
	}
	if depth < 0 {
		return position{}, fmt.Errorf("%w: got %d", errInvalidDepth, depth)
	}
	threads := cfg.AiThreads
	if req.Threads != nil {
		threads = max(*req.Threads, 0)
	}
	if cfg.AiMaxThreads > 0 && threads > cfg.AiMaxThreads {
		threads = cfg.AiMaxThreads
	}
	mode, err := resolveMode(req.Mode, threads, cfg)
	if err != nil {
		return position{}, err
	}
	if mode == modeSingle {
		threads = 1
	}
	return position{
		game:           game,
		maximizersTurn: req.MaximizersTurn,
		depth:          depth,
		threads:        threads,
		mode:           mode,
	}, nil
}

// defaultDepth is the depth used when a request names none. An unbounded
// search of an open 4x4 board does not finish in reasonable time.
func defaultDepth(cfg Config, size int) int {
	if size == 4 && cfg.AiDepth == 0 && cfg.AiDepth4x4 > 0 {
		return cfg.AiDepth4x4
	}
	return cfg.AiDepth
}

func parseSymbol(raw string) (rune, error) {
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("%w: %q", errInvalidSymbol, raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return r, nil
}

func resolveMode(mode string, threads int, cfg Config) (string, error) {
	switch mode {
	case modeSingle, modeMulti:
		return mode, nil
	case "":
		if threads == 1 {
			return modeSingle, nil
		}
		if cfg.AiMode == modeSingle {
			return modeSingle, nil
		}
		return modeMulti, nil
	default:
		return "", fmt.Errorf("%w: got %q", errInvalidMode, mode)
	}
}

// Analyzer answers positions from the result cache or by running a search.
type Analyzer struct {
	cache *ResultCache
	hub   *Hub
}

func NewAnalyzer(cache *ResultCache, hub *Hub) *Analyzer {
	return &Analyzer{cache: cache, hub: hub}
}

// Analyze returns the tied-best moves for pos. Fresh results are cached and
// announced on the hub.
func (a *Analyzer) Analyze(pos position) analyzeResponse {
	key := pos.key()
	if entry, ok := a.cache.Get(key); ok {
		log.Debug().Str("hash", hashToBoardID(key.Hash)).Uint32("hits", entry.Hits).Msg("analysis-cache-hit")
		resp := entryToResponse(pos, entry)
		resp.Cached = true
		return resp
	}

	start := time.Now()
	best, metrics := runSearch(pos)
	elapsed := time.Since(start)

	entry := cacheEntry{
		Key: key,
		Moves: lo.Map(best, func(ms engine.MoveScore[tictactoe.Move], _ int) cachedMove {
			return cachedMove{Position: ms.Move.Position, Score: ms.Score}
		}),
		Nodes:      metrics.Nodes,
		Prunes:     metrics.Prunes,
		ElapsedMs:  float64(elapsed.Microseconds()) / 1000.0,
		Over:       pos.game.Evaluate().IsOver(),
		StoredAtMs: time.Now().UnixMilli(),
	}
	a.cache.Put(entry)

	log.Info().
		Str("hash", hashToBoardID(key.Hash)).
		Str("mode", pos.mode).
		Int("depth", pos.depth).
		Int("threads", pos.threads).
		Int("best-moves", len(best)).
		Int64("nodes", metrics.Nodes).
		Int64("prunes", metrics.Prunes).
		Dur("elapsed", elapsed).
		Msg("analysis-complete")

	resp := entryToResponse(pos, entry)
	if a.hub != nil {
		a.hub.PublishAnalysis(resp)
	}
	return resp
}

func runSearch(pos position) ([]engine.MoveScore[tictactoe.Move], engine.Metrics) {
	board := pos.game.Copy()
	if pos.mode == modeSingle {
		return engine.GetBestMoves[tictactoe.Move](board, pos.depth, pos.maximizersTurn)
	}
	return engine.GetBestMovesMulti[tictactoe.Move](board, pos.depth, pos.maximizersTurn, pos.threads)
}

func entryToResponse(pos position, entry cacheEntry) analyzeResponse {
	player := string(pos.game.Player(pos.maximizersTurn))
	return analyzeResponse{
		Moves: lo.Map(entry.Moves, func(m cachedMove, _ int) moveDTO {
			return moveDTO{Position: m.Position, Player: player, Score: m.Score}
		}),
		Nodes:          entry.Nodes,
		Prunes:         entry.Prunes,
		ElapsedMs:      entry.ElapsedMs,
		Hash:           hashToBoardID(entry.Key.Hash),
		Over:           entry.Over,
		Depth:          entry.Key.Depth,
		Mode:           entry.Key.Mode,
		MaximizersTurn: entry.Key.MaximizersTurn,
	}
}

func hashToBoardID(hash uint64) string {
	return fmt.Sprintf("0x%016x", hash)
}

func parseBoardID(raw string) (uint64, error) {
	if raw == "" {
		return 0, errInvalidHash
	}
	hash, err := strconv.ParseUint(raw, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidHash, err)
	}
	return hash, nil
}

func boardCells(game *tictactoe.Game) []string {
	return lo.Map(game.Cells, func(c rune, _ int) string {
		if c == tictactoe.Empty {
			return ""
		}
		return string(c)
	})
}
