// Command selfplay plays engine-vs-engine tic-tac-toe games through the
// analysis backend and reports how much search each move took.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonah-saltzman/multithread-minimax/tictactoe"
)

const (
	maximizer = 'x'
	minimizer = 'o'
)

type harness struct {
	client  *http.Client
	baseURL string
	depth   int
	threads int
	mode    string

	rngMu sync.Mutex
	rng   *rand.Rand
}

type plyStats struct {
	Ply       int
	Nodes     int64
	Prunes    int64
	ElapsedMs float64
	Cached    bool
	Choices   int
}

type gameRecord struct {
	Index  int
	Final  *tictactoe.Game
	Winner rune
	Plies  []plyStats
}

func main() {
	games := flag.Int("games", getenvInt("SELFPLAY_GAMES", 10), "number of games to play")
	size := flag.Int("size", getenvInt("SELFPLAY_SIZE", 3), "board size (3 or 4)")
	parallel := flag.Int("parallel", getenvInt("SELFPLAY_PARALLEL", 2), "games played at once")
	depth := flag.Int("depth", getenvInt("SELFPLAY_DEPTH", 0), "search depth, 0 for the backend default")
	threads := flag.Int("threads", getenvInt("SELFPLAY_THREADS", 0), "search threads, 0 for one per CPU")
	mode := flag.String("mode", getenv("SELFPLAY_MODE", "multi"), "search mode: single or multi")
	baseURL := flag.String("backend", getenv("BACKEND_URL", "http://localhost:8080"), "backend base URL")
	report := flag.String("report", "", "write an HTML chart of nodes and prunes per ply to this path")
	watch := flag.Bool("watch", false, "log analysis events from the backend websocket")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for picking among tied moves")
	noColor := flag.Bool("no-color", false, "disable colored boards")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *size != 3 && *size != 4 {
		log.Fatal().Int("size", *size).Msg("unsupported-board-size")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &harness{
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: *baseURL,
		depth:   *depth,
		threads: *threads,
		mode:    *mode,
		rng:     rand.New(rand.NewSource(*seed)),
	}
	if err := h.waitBackendReady(ctx); err != nil {
		log.Fatal().Err(err).Str("backend", *baseURL).Msg("backend-unavailable")
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if *watch {
		go func() {
			if err := watchEvents(watchCtx, wsURL(*baseURL)); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("watch-stopped")
			}
		}()
	}

	start := time.Now()
	records, err := h.playAll(ctx, *games, *size, *parallel)
	stopWatch()
	if err != nil {
		log.Fatal().Err(err).Msg("selfplay-failed")
	}

	au := aurora.NewAurora(!*noColor)
	for _, record := range records {
		fmt.Println(renderRecord(au, record))
		fmt.Println()
	}
	summary := summarize(records)
	fmt.Println(renderSummary(au, summary))
	log.Info().Dur("elapsed", time.Since(start)).Int("games", len(records)).Msg("selfplay-complete")

	if *report != "" {
		if err := writeReport(*report, records); err != nil {
			log.Fatal().Err(err).Str("path", *report).Msg("report-failed")
		}
		log.Info().Str("path", *report).Msg("report-written")
	}
}

// playAll runs count games, at most parallel at a time, and returns them in
// game order.
func (h *harness) playAll(ctx context.Context, count, size, parallel int) ([]gameRecord, error) {
	records := make([]gameRecord, count)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			record, err := h.playGame(ctx, i, size)
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *harness) playGame(ctx context.Context, index, size int) (gameRecord, error) {
	game, err := tictactoe.New(size, maximizer, minimizer)
	if err != nil {
		return gameRecord{}, err
	}
	record := gameRecord{Index: index}
	isMax := index%2 == 0
	for ply := 0; !game.Evaluate().IsOver(); ply++ {
		if err := ctx.Err(); err != nil {
			return gameRecord{}, err
		}
		var resp analyzeResponse
		if err := h.postJSON(ctx, "/api/analyze", h.request(game, isMax), &resp); err != nil {
			return gameRecord{}, err
		}
		if len(resp.Moves) == 0 {
			return gameRecord{}, fmt.Errorf("no moves returned at ply %d", ply)
		}
		choice := h.pick(resp.Moves)
		game.MakeMove(tictactoe.Move{Player: game.Player(isMax), Position: choice.Position})
		record.Plies = append(record.Plies, plyStats{
			Ply:       ply,
			Nodes:     resp.Nodes,
			Prunes:    resp.Prunes,
			ElapsedMs: resp.ElapsedMs,
			Cached:    resp.Cached,
			Choices:   len(resp.Moves),
		})
		log.Debug().
			Int("game", index+1).
			Int("ply", ply).
			Int("position", choice.Position).
			Int64("score", choice.Score).
			Int("choices", len(resp.Moves)).
			Bool("cached", resp.Cached).
			Msg("move-played")
		isMax = !isMax
	}
	record.Final = game
	switch score := game.Evaluate().Score(); {
	case score > 0:
		record.Winner = maximizer
	case score < 0:
		record.Winner = minimizer
	}
	return record, nil
}

func (h *harness) request(game *tictactoe.Game, isMax bool) analyzeRequest {
	cells := make([]string, len(game.Cells))
	for i, c := range game.Cells {
		if c != tictactoe.Empty {
			cells[i] = string(c)
		}
	}
	return analyzeRequest{
		Size:           game.Size(),
		Cells:          cells,
		Maximizer:      string(maximizer),
		Minimizer:      string(minimizer),
		MaximizersTurn: isMax,
		Depth:          h.depth,
		Threads:        h.threads,
		Mode:           h.mode,
	}
}

// pick chooses uniformly among the tied-best moves.
func (h *harness) pick(moves []moveDTO) moveDTO {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return moves[h.rng.Intn(len(moves))]
}
