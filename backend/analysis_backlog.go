package main

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	errQueueDisabled = errors.New("analysis queue is disabled")
	errQueueFull     = errors.New("analysis queue is full")
)

const backlogIdleDelay = 150 * time.Millisecond

type backlogEntry struct {
	pos                 position
	key                 cacheKey
	created             time.Time
	hits                int
	analyzing           bool
	analysisStartedAtMs int64
}

// analysisBacklog holds positions waiting for background analysis. The
// position queued the most times is analyzed first.
type analysisBacklog struct {
	mu               sync.Mutex
	queue            []*backlogEntry
	present          map[cacheKey]*backlogEntry
	analyzer         *Analyzer
	hub              *Hub
	queueEmptyLogged bool
}

func newAnalysisBacklog(analyzer *Analyzer, hub *Hub) *analysisBacklog {
	return &analysisBacklog{
		present:  make(map[cacheKey]*backlogEntry),
		analyzer: analyzer,
		hub:      hub,
	}
}

// Enqueue adds pos, or bumps its hit count when it is already queued.
func (b *analysisBacklog) Enqueue(pos position) (queueEventEntry, error) {
	cfg := GetConfig()
	if !cfg.AiQueueEnabled {
		return queueEventEntry{}, errQueueDisabled
	}
	key := pos.key()
	b.mu.Lock()
	if entry, ok := b.present[key]; ok {
		entry.hits++
		payload := b.payloadLocked("board_hit", entry)
		b.mu.Unlock()
		b.publish(payload)
		return *payload.Entry, nil
	}
	if cfg.AiQueueLimit > 0 && len(b.queue) >= cfg.AiQueueLimit {
		b.mu.Unlock()
		log.Warn().Int("limit", cfg.AiQueueLimit).Msg("queue-full")
		return queueEventEntry{}, errQueueFull
	}
	entry := &backlogEntry{
		pos:     pos,
		key:     key,
		created: time.Now(),
		hits:    1,
	}
	b.queue = append(b.queue, entry)
	b.present[key] = entry
	b.queueEmptyLogged = false
	payload := b.payloadLocked("board_added", entry)
	b.mu.Unlock()
	b.publish(payload)
	log.Debug().Str("hash", hashToBoardID(key.Hash)).Int("depth", key.Depth).Str("mode", key.Mode).Msg("queue-enqueue")
	return *payload.Entry, nil
}

func (b *analysisBacklog) pickTaskForProcessing() (*backlogEntry, bool) {
	b.mu.Lock()
	var best *backlogEntry
	for _, entry := range b.queue {
		if entry.analyzing {
			continue
		}
		if best == nil || compareQueuePriority(entry, best) < 0 {
			best = entry
		}
	}
	if best == nil {
		b.mu.Unlock()
		return nil, false
	}
	best.analyzing = true
	best.analysisStartedAtMs = time.Now().UnixMilli()
	payload := b.payloadLocked("board_started", best)
	b.mu.Unlock()
	b.publish(payload)
	return best, true
}

func (b *analysisBacklog) finishTaskProcessing(entry *backlogEntry) {
	b.mu.Lock()
	for i, queued := range b.queue {
		if queued == entry {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			break
		}
	}
	delete(b.present, entry.key)
	entry.analyzing = false
	payload := b.payloadLocked("board_left", entry)
	b.mu.Unlock()
	b.publish(payload)
}

// processNext analyzes one queued position. It reports false when there was
// nothing to do.
func (b *analysisBacklog) processNext() bool {
	entry, ok := b.pickTaskForProcessing()
	if !ok {
		b.logQueueEmptyIfNeeded()
		return false
	}
	defer b.finishTaskProcessing(entry)
	if b.analyzer.cache.Contains(entry.key) {
		log.Debug().Str("hash", hashToBoardID(entry.key.Hash)).Msg("queue-skip-cached")
		return true
	}
	log.Info().
		Str("hash", hashToBoardID(entry.key.Hash)).
		Int("depth", entry.key.Depth).
		Str("mode", entry.key.Mode).
		Int("remaining", b.Len()-1).
		Msg("queue-analyzing")
	b.analyzer.Analyze(entry.pos)
	return true
}

func (b *analysisBacklog) logQueueEmptyIfNeeded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) != 0 || b.queueEmptyLogged {
		return
	}
	log.Info().Msg("queue-drained")
	b.queueEmptyLogged = true
}

func (b *analysisBacklog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *analysisBacklog) TopQueue(limit int) []queueEntryDTO {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 {
		return []queueEntryDTO{}
	}
	items := append([]*backlogEntry(nil), b.queue...)
	sortQueue(items)
	if len(items) > limit {
		items = items[:limit]
	}
	result := make([]queueEntryDTO, 0, len(items))
	for _, item := range items {
		result = append(result, queueEntryToDTO(item))
	}
	return result
}

func (b *analysisBacklog) payloadLocked(event string, entry *backlogEntry) queuePayload {
	dto := queueEntryToEventEntry(entry)
	return queuePayload{
		Event:        event,
		Entry:        &dto,
		TotalInQueue: len(b.queue),
		UpdatedAt:    time.Now().UnixMilli(),
	}
}

func (b *analysisBacklog) publish(payload queuePayload) {
	if b.hub == nil {
		return
	}
	b.hub.PublishQueue(payload)
}

// Run drives the workers until ctx is done.
func (b *analysisBacklog) Run(ctx context.Context, workers int) error {
	log.Info().Int("workers", workers).Msg("queue-starting-workers")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return b.worker(ctx)
		})
	}
	return g.Wait()
}

func (b *analysisBacklog) worker(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if GetConfig().AiQueueEnabled && b.processNext() {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backlogIdleDelay):
		}
	}
}

func backlogWorkerCount(config Config, cpuCount int) int {
	if cpuCount < 1 {
		cpuCount = 1
	}
	workers := config.AiQueueWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > cpuCount {
		workers = cpuCount
	}
	return workers
}

func startWorkerCount(config Config) int {
	return backlogWorkerCount(config, runtime.NumCPU())
}
