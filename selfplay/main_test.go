package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/logrusorgru/aurora"

	"github.com/jonah-saltzman/multithread-minimax/engine"
	"github.com/jonah-saltzman/multithread-minimax/tictactoe"
)

// newEngineBackend answers /api/analyze by running the engine in process.
func newEngineBackend(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cells := make([]rune, len(req.Cells))
		for i, c := range req.Cells {
			if c != "" {
				cells[i] = []rune(c)[0]
			}
		}
		game, err := tictactoe.FromCells(req.Size, cells, []rune(req.Maximizer)[0], []rune(req.Minimizer)[0])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		best, metrics := engine.GetBestMovesMulti[tictactoe.Move](game, req.Depth, req.MaximizersTurn, req.Threads)
		resp := analyzeResponse{Nodes: metrics.Nodes, Prunes: metrics.Prunes}
		for _, ms := range best {
			resp.Moves = append(resp.Moves, moveDTO{Position: ms.Move.Position, Player: string(ms.Move.Player), Score: ms.Score})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHarness(baseURL string) *harness {
	return &harness{
		client:  http.DefaultClient,
		baseURL: baseURL,
		threads: 2,
		mode:    "multi",
		rng:     rand.New(rand.NewSource(7)),
	}
}

func TestOptimalPlayAlwaysDraws(t *testing.T) {
	var calls atomic.Int64
	srv := newEngineBackend(t, &calls)
	h := newTestHarness(srv.URL)

	records, err := h.playAll(context.Background(), 4, 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := summarize(records)
	if s.Games != 4 || s.Draws != 4 {
		t.Fatalf("expected 4 drawn games, got %+v", s)
	}
	if s.Moves != 36 || calls.Load() != 36 {
		t.Fatalf("expected 9 moves per game, got %d moves and %d calls", s.Moves, calls.Load())
	}
	for _, record := range records {
		if record.Final == nil || !record.Final.Evaluate().IsOver() {
			t.Fatalf("expected game %d to be finished", record.Index+1)
		}
	}
}

func TestWaitBackendReady(t *testing.T) {
	srv := newEngineBackend(t, nil)
	h := newTestHarness(srv.URL)
	if err := h.waitBackendReady(context.Background()); err != nil {
		t.Fatalf("expected backend to be ready, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestHarness("http://127.0.0.1:1").waitBackendReady(ctx); err == nil {
		t.Fatalf("expected a cancelled wait to fail")
	}
}

func TestPlayGameReportsBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	h := newTestHarness(srv.URL)
	if _, err := h.playGame(context.Background(), 0, 3); err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected a 500 error, got %v", err)
	}
}

func TestPickStaysWithinTies(t *testing.T) {
	h := newTestHarness("")
	moves := []moveDTO{{Position: 0}, {Position: 4}, {Position: 8}}
	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		seen[h.pick(moves).Position] = true
	}
	for pos := range seen {
		if pos != 0 && pos != 4 && pos != 8 {
			t.Fatalf("picked a move outside the ties: %d", pos)
		}
	}
	if len(seen) < 2 {
		t.Fatalf("expected more than one tied move to be picked over 100 draws")
	}
}

func TestRenderBoardWithoutColors(t *testing.T) {
	game, err := tictactoe.FromCells(3, []rune("xo\x00\x00x\x00\x00\x00o"), 'x', 'o')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := renderBoard(aurora.NewAurora(false), game)
	want := "x o 2\n3 x 5\n6 7 o"
	if got != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestAveragePerPly(t *testing.T) {
	records := []gameRecord{
		{Plies: []plyStats{{Ply: 0, Nodes: 10, Prunes: 2}, {Ply: 1, Nodes: 4}}},
		{Plies: []plyStats{{Ply: 0, Nodes: 30, Prunes: 4}}},
	}
	averages := averagePerPly(records)
	if len(averages) != 2 {
		t.Fatalf("expected 2 plies, got %d", len(averages))
	}
	if averages[0].Nodes != 20 || averages[0].Prunes != 3 || averages[1].Nodes != 4 {
		t.Fatalf("unexpected averages: %+v", averages)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	records := []gameRecord{{Plies: []plyStats{{Ply: 0, Nodes: 10, Prunes: 2}}}}
	if err := writeReport(path, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "avg nodes") {
		t.Fatalf("expected the nodes series in the report")
	}
}

func TestWSURL(t *testing.T) {
	if got := wsURL("http://localhost:8080"); got != "ws://localhost:8080/ws/" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := wsURL("https://example.com"); got != "wss://example.com/ws/" {
		t.Fatalf("unexpected url %q", got)
	}
}
