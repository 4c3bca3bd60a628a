package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type analyzeRequest struct {
	Size           int      `json:"size"`
	Cells          []string `json:"cells"`
	Maximizer      string   `json:"maximizer"`
	Minimizer      string   `json:"minimizer"`
	MaximizersTurn bool     `json:"maximizers_turn"`
	Depth          int      `json:"depth,omitempty"`
	Threads        int      `json:"threads"`
	Mode           string   `json:"mode,omitempty"`
}

type moveDTO struct {
	Position int    `json:"position"`
	Player   string `json:"player"`
	Score    int64  `json:"score"`
}

type analyzeResponse struct {
	Moves     []moveDTO `json:"moves"`
	Nodes     int64     `json:"nodes"`
	Prunes    int64     `json:"prunes"`
	ElapsedMs float64   `json:"elapsed_ms"`
	Cached    bool      `json:"cached"`
	Hash      string    `json:"hash"`
	Over      bool      `json:"over"`
}

func (h *harness) waitBackendReady(ctx context.Context) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.ping(ctx); err == nil {
			return nil
		}
		if !sleepWithContext(ctx, 1*time.Second) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("timeout after 60s")
}

func (h *harness) ping(ctx context.Context) error {
	var body map[string]bool
	if err := h.getJSON(ctx, "/api/ping", &body); err != nil {
		return err
	}
	if !body["ok"] {
		return fmt.Errorf("ping not ok")
	}
	return nil
}

func (h *harness) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (h *harness) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("POST %s -> %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
