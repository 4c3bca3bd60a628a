package main

import "testing"

func TestConfigFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("AI_DEPTH", "5")
	t.Setenv("AI_QUEUE_ENABLED", "false")
	t.Setenv("AI_CACHE_PATH", "/tmp/cache.gob")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AI_MAX_THREADS", "2")
	t.Setenv("AI_DEPTH_4X4", "4")

	cfg := configFromEnv(DefaultConfig())
	if cfg.Addr != ":9999" || cfg.AiDepth != 5 {
		t.Fatalf("expected addr and depth from env, got %q and %d", cfg.Addr, cfg.AiDepth)
	}
	if cfg.AiQueueEnabled {
		t.Fatalf("expected queue disabled from env")
	}
	if cfg.AiMaxThreads != 2 || cfg.AiDepth4x4 != 4 {
		t.Fatalf("expected thread cap and 4x4 depth from env, got %d and %d", cfg.AiMaxThreads, cfg.AiDepth4x4)
	}
	if cfg.AiCachePath != "/tmp/cache.gob" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cache path or log level: %q %q", cfg.AiCachePath, cfg.LogLevel)
	}
}

func TestConfigFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("AI_THREADS", "many")
	t.Setenv("AI_PERSIST_CACHE", "perhaps")
	base := DefaultConfig()
	cfg := configFromEnv(base)
	if cfg.AiThreads != base.AiThreads || cfg.AiPersistCache != base.AiPersistCache {
		t.Fatalf("expected malformed values to keep defaults")
	}
}

func TestConfigStoreUpdate(t *testing.T) {
	store := &ConfigStore{config: DefaultConfig()}
	cfg := store.Get()
	cfg.AiDepth = 7
	if store.Get().AiDepth == 7 {
		t.Fatalf("expected Get to return a copy")
	}
	store.Update(cfg)
	if store.Get().AiDepth != 7 {
		t.Fatalf("expected updated depth")
	}
}
