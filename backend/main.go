package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonah-saltzman/multithread-minimax/tictactoe"
)

type cacheStatusResponse struct {
	Count    int     `json:"count"`
	Capacity int     `json:"capacity"`
	Usage    float64 `json:"usage"`
	Full     bool    `json:"full"`
}

type cacheEntryDTO struct {
	Hash           string    `json:"hash"`
	Size           int       `json:"size"`
	MaximizersTurn bool      `json:"maximizers_turn"`
	Depth          int       `json:"depth"`
	Mode           string    `json:"mode"`
	Hits           uint32    `json:"hits"`
	Moves          []moveDTO `json:"moves"`
	Nodes          int64     `json:"nodes"`
	Prunes         int64     `json:"prunes"`
	ElapsedMs      float64   `json:"elapsed_ms"`
	StoredAtMs     int64     `json:"stored_at_ms"`
}

type cacheEntriesResponse struct {
	Items  []cacheEntryDTO `json:"items"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
	Total  int             `json:"total"`
}

// app holds the long-lived pieces shared by the handlers.
type app struct {
	hub      *Hub
	cache    *ResultCache
	analyzer *Analyzer
	backlog  *analysisBacklog
	ws       wsHeartbeat
}

func newApp(cfg Config) *app {
	hub := NewHub()
	cache := NewResultCache(cfg.AiCacheLimit)
	analyzer := NewAnalyzer(cache, hub)
	return &app{
		hub:      hub,
		cache:    cache,
		analyzer: analyzer,
		backlog:  newAnalysisBacklog(analyzer, hub),
		ws:       defaultHeartbeat,
	}
}

func main() {
	cfg := configFromEnv(DefaultConfig())
	configStore.Update(cfg)
	setupLogger(cfg)

	a := newApp(cfg)
	loadCachePersistence(cfg, a.cache)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	g, ctx := errgroup.WithContext(sigCtx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.hub.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		return a.backlog.Run(ctx, startWorkerCount(cfg))
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("backend-listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Err(context.Cause(ctx)).Msg("shutdown-requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("graceful-shutdown-failed")
			if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
				log.Error().Err(closeErr).Msg("forced-close-failed")
			}
		}
		return nil
	})

	runErr := g.Wait()
	if err := persistCache(GetConfig(), a.cache); err != nil {
		log.Error().Err(err).Msg("cache-persist-failed")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("backend-exited")
	}
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GetConfig())
	})
	r.Post("/api/config", func(w http.ResponseWriter, r *http.Request) {
		cfg := GetConfig()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if _, err := resolveMode(cfg.AiMode, cfg.AiThreads, cfg); err != nil {
			writeError(w, err)
			return
		}
		configStore.Update(cfg)
		a.cache.SetLimit(cfg.AiCacheLimit)
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
			zerolog.SetGlobalLevel(level)
		}
		a.hub.PublishConfig(cfg)
		writeJSON(w, http.StatusOK, cfg)
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		pos, err := req.position(GetConfig())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.analyzer.Analyze(pos))
	})

	r.Get("/api/analysis/queue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, queueResponse{
			Queue:        a.backlog.TopQueue(queueTopBoardsLimit()),
			TotalInQueue: a.backlog.Len(),
		})
	})
	r.Post("/api/analysis/queue", func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		pos, err := req.position(GetConfig())
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := a.backlog.Enqueue(pos)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, entry)
	})

	r.Get("/api/cache", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cacheStatus(a.cache))
	})
	r.Delete("/api/cache", func(w http.ResponseWriter, r *http.Request) {
		a.cache.Clear()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	})
	r.Get("/api/cache/entries", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		if offset < 0 {
			offset = 0
		}
		writeJSON(w, http.StatusOK, cacheEntries(a.cache, offset, limit))
	})
	r.Delete("/api/cache/entries/{hash}", func(w http.ResponseWriter, r *http.Request) {
		hash, err := parseBoardID(chi.URLParam(r, "hash"))
		if err != nil {
			writeError(w, err)
			return
		}
		deleted := a.cache.DeleteByHash(hash)
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted": deleted,
			"hash":    hashToBoardID(hash),
		})
	})

	r.Get("/ws/", func(w http.ResponseWriter, r *http.Request) {
		serveWS(a.hub, a.analyzer, a.backlog, a.ws, w, r)
	})
	return r
}

func cacheStatus(cache *ResultCache) cacheStatusResponse {
	count := cache.Count()
	capacity := cache.Capacity()
	usage := 0.0
	full := false
	if capacity > 0 {
		usage = float64(count) / float64(capacity)
		full = count >= capacity
	}
	return cacheStatusResponse{
		Count:    count,
		Capacity: capacity,
		Usage:    usage,
		Full:     full,
	}
}

func cacheEntries(cache *ResultCache, offset int, limit int) cacheEntriesResponse {
	entries, total := cache.TopEntriesByHits(offset, limit)
	items := make([]cacheEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, cacheEntryToDTO(entry))
	}
	return cacheEntriesResponse{
		Items:  items,
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}
}

func cacheEntryToDTO(entry cacheEntry) cacheEntryDTO {
	moves := make([]moveDTO, 0, len(entry.Moves))
	for _, m := range entry.Moves {
		moves = append(moves, moveDTO{Position: m.Position, Score: m.Score})
	}
	return cacheEntryDTO{
		Hash:           hashToBoardID(entry.Key.Hash),
		Size:           entry.Key.Size,
		MaximizersTurn: entry.Key.MaximizersTurn,
		Depth:          entry.Key.Depth,
		Mode:           entry.Key.Mode,
		Hits:           entry.Hits,
		Moves:          moves,
		Nodes:          entry.Nodes,
		Prunes:         entry.Prunes,
		ElapsedMs:      entry.ElapsedMs,
		StoredAtMs:     entry.StoredAtMs,
	}
}

// writeError maps known validation errors to 4xx responses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tictactoe.ErrInvalidSize),
		errors.Is(err, tictactoe.ErrInvalidPlayers),
		errors.Is(err, tictactoe.ErrInvalidBoard),
		errors.Is(err, tictactoe.ErrInvalidCell),
		errors.Is(err, errInvalidSymbol),
		errors.Is(err, errInvalidMode),
		errors.Is(err, errInvalidDepth),
		errors.Is(err, errInvalidHash):
		status = http.StatusBadRequest
	case errors.Is(err, errQueueDisabled):
		status = http.StatusConflict
	case errors.Is(err, errQueueFull):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
