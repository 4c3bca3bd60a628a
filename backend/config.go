package main

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

type Config struct {
	Addr             string `json:"addr"`
	AiDepth          int    `json:"ai_depth"`
	AiDepth4x4       int    `json:"ai_depth_4x4"`
	AiThreads        int    `json:"ai_threads"`
	AiMaxThreads     int    `json:"ai_max_threads"`
	AiMode           string `json:"ai_mode"`
	AiQueueWorkers   int    `json:"ai_queue_workers"`
	AiQueueEnabled   bool   `json:"ai_enable_queue"`
	AiQueueLimit     int    `json:"ai_queue_limit"`
	AiQueueTopBoards int    `json:"ai_queue_top_boards"`
	AiCacheLimit     int    `json:"ai_cache_limit"`
	AiPersistCache   bool   `json:"ai_persist_cache"`
	AiCachePath      string `json:"ai_cache_path"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func DefaultConfig() Config {
	return Config{
		Addr: ":8080",

		// 0 searches every line to the end; 4x4 boards fall back to AiDepth4x4
		AiDepth:      0,
		AiDepth4x4:   6,
		AiThreads:    0,
		AiMaxThreads: runtime.NumCPU(),
		AiMode:       modeMulti,

		AiQueueWorkers:   1,
		AiQueueEnabled:   true,
		AiQueueLimit:     1024,
		AiQueueTopBoards: 10,

		AiCacheLimit:   1 << 14,
		AiPersistCache: true,
		AiCachePath:    "analysis_cache.gob",

		LogLevel:  "info",
		LogFormat: "console",
	}
}

var configStore = &ConfigStore{config: DefaultConfig()}

func GetConfig() Config {
	return configStore.Get()
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}

// configFromEnv overlays environment variables on base.
func configFromEnv(base Config) Config {
	cfg := base
	cfg.Addr = getenv("ADDR", cfg.Addr)
	cfg.AiDepth = getenvInt("AI_DEPTH", cfg.AiDepth)
	cfg.AiDepth4x4 = getenvInt("AI_DEPTH_4X4", cfg.AiDepth4x4)
	cfg.AiThreads = getenvInt("AI_THREADS", cfg.AiThreads)
	cfg.AiMaxThreads = getenvInt("AI_MAX_THREADS", cfg.AiMaxThreads)
	cfg.AiMode = getenv("AI_MODE", cfg.AiMode)
	cfg.AiQueueWorkers = getenvInt("AI_QUEUE_WORKERS", cfg.AiQueueWorkers)
	cfg.AiQueueEnabled = getenvBool("AI_QUEUE_ENABLED", cfg.AiQueueEnabled)
	cfg.AiQueueLimit = getenvInt("AI_QUEUE_LIMIT", cfg.AiQueueLimit)
	cfg.AiCacheLimit = getenvInt("AI_CACHE_LIMIT", cfg.AiCacheLimit)
	cfg.AiPersistCache = getenvBool("AI_PERSIST_CACHE", cfg.AiPersistCache)
	cfg.AiCachePath = getenv("AI_CACHE_PATH", cfg.AiCachePath)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
