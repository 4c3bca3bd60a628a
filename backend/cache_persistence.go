package main

import (
	"encoding/gob"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

var dockerCacheDir = "/cache_logs"

type cachePersistenceSnapshot struct {
	Limit   int
	Entries []cacheEntry
}

func loadCachePersistence(cfg Config, cache *ResultCache) {
	if cache == nil || !cfg.AiPersistCache || cfg.AiCachePath == "" {
		log.Info().Msg("cache-restore-skipped")
		return
	}
	path := resolveCachePersistencePath(cfg.AiCachePath)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", path).Msg("cache-restore-no-file")
			return
		}
		log.Error().Err(err).Str("path", path).Msg("cache-restore-open-failed")
		return
	}
	defer file.Close()

	var snapshot cachePersistenceSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		if isEOFError(err) {
			file.Close()
			os.Remove(path)
			log.Warn().Str("path", path).Msg("cache-restore-truncated-file-removed")
			return
		}
		log.Error().Err(err).Str("path", path).Msg("cache-restore-decode-failed")
		return
	}
	restored := cache.loadEntries(snapshot.Entries)
	log.Info().
		Str("path", path).
		Int("restored", restored).
		Int("stored", len(snapshot.Entries)).
		Msg("cache-restored")
}

func persistCache(cfg Config, cache *ResultCache) error {
	if cache == nil || !cfg.AiPersistCache || cfg.AiCachePath == "" {
		return nil
	}
	path := resolveCachePersistencePath(cfg.AiCachePath)
	if err := ensureCacheDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	snapshot := cachePersistenceSnapshot{
		Limit:   cache.Capacity(),
		Entries: cache.snapshotEntries(),
	}
	if err := gob.NewEncoder(file).Encode(&snapshot); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("entries", len(snapshot.Entries)).Msg("cache-persisted")
	return nil
}

func ensureCacheDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// resolveCachePersistencePath puts relative paths under the container cache
// volume when it is mounted.
func resolveCachePersistencePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if stat, err := os.Stat(dockerCacheDir); err == nil && stat.IsDir() {
		return filepath.Join(dockerCacheDir, path)
	}
	return path
}

func isEOFError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
