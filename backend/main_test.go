package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *app) {
	t.Helper()
	cfg := withConfig(t, nil)
	a := newApp(cfg)
	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)
	return srv, a
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestPingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]bool
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/ping", nil, &body); status != http.StatusOK || !body["ok"] {
		t.Fatalf("expected ok ping, got %d %v", status, body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	var resp analyzeResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/analyze", xToMove("xx_oo____"), &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(resp.Moves) != 1 || resp.Moves[0].Position != 2 || resp.Moves[0].Score != 99 {
		t.Fatalf("expected the win on 2, got %+v", resp.Moves)
	}
	if !strings.HasPrefix(resp.Hash, "0x") {
		t.Fatalf("expected hex hash, got %q", resp.Hash)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/analyze", xToMove("xx_oo____"), &resp)
	if status != http.StatusOK || !resp.Cached {
		t.Fatalf("expected cached repeat, got %d cached=%t", status, resp.Cached)
	}
}

func TestAnalyzeEndpointRejectsBadBoards(t *testing.T) {
	srv, _ := newTestServer(t)
	req := xToMove("xx_oo____")
	req.Cells = req.Cells[:4]
	var body map[string]string
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/analyze", req, &body); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["error"] == "" {
		t.Fatalf("expected an error message")
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	var analyzed analyzeResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/analyze", xToMove("xx_oo____"), &analyzed)

	var status cacheStatusResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/cache", nil, &status)
	if status.Count != 1 {
		t.Fatalf("expected one cached entry, got %d", status.Count)
	}

	var entries cacheEntriesResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/cache/entries?limit=5", nil, &entries)
	if entries.Total != 1 || len(entries.Items) != 1 || entries.Items[0].Hash != analyzed.Hash {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	var deleted map[string]any
	code := doJSON(t, http.MethodDelete, srv.URL+"/api/cache/entries/"+analyzed.Hash, nil, &deleted)
	if code != http.StatusOK || deleted["deleted"] != float64(1) {
		t.Fatalf("expected one deleted entry, got %d %v", code, deleted)
	}
	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/cache/entries/zzz", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad hash, got %d", code)
	}
	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/cache", nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 clearing the cache, got %d", code)
	}
}

func TestQueueEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	var entry queueEventEntry
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/analysis/queue", xToMove("x___o____"), &entry); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/analysis/queue", xToMove("x___o____"), &entry)
	if entry.Hits != 2 {
		t.Fatalf("expected 2 hits, got %d", entry.Hits)
	}
	var queue queueResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/analysis/queue", nil, &queue)
	if queue.TotalInQueue != 1 || len(queue.Queue) != 1 || len(queue.Queue[0].Cells) != 9 {
		t.Fatalf("unexpected queue: %+v", queue)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, a := newTestServer(t)
	var cfg Config
	doJSON(t, http.MethodGet, srv.URL+"/api/config", nil, &cfg)
	cfg.AiCacheLimit = 3
	cfg.AiDepth = 2

	var updated Config
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/config", cfg, &updated); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if GetConfig().AiDepth != 2 || a.cache.Capacity() != 3 {
		t.Fatalf("expected config and cache limit to change")
	}

	cfg.AiMode = "fastest"
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/config", cfg, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown mode, got %d", code)
	}
}

func TestWebsocketAnalyze(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := mustMarshal(xToMove("xx_oo____"))
	if err := conn.WriteJSON(wsMessage{Type: "analyze", Payload: payload}); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "analysis" {
			continue
		}
		var resp analyzeResponse
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Moves) != 1 || resp.Moves[0].Position != 2 {
			t.Fatalf("expected the win on 2, got %+v", resp.Moves)
		}
		return
	}
}

func TestWebsocketHeartbeatKeepsIdleClientAlive(t *testing.T) {
	cfg := withConfig(t, nil)
	a := newApp(cfg)
	a.ws = wsHeartbeat{interval: 40 * time.Millisecond, writeWait: time.Second}
	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the reader's deadline is two intervals; pongs must keep extending it
	start := time.Now()
	pings := 0
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for pings < 2 || time.Since(start) < 300*time.Millisecond {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("expected the connection to stay open, got %v after %d pings", err, pings)
		}
		if msg.Type != "ping" {
			continue
		}
		var payload map[string]int64
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload["at_ms"] == 0 {
			t.Fatalf("expected ping timestamp, got %s", msg.Payload)
		}
		pings++
	}
	if !a.hub.HasClients() {
		t.Fatalf("expected the idle client to stay registered")
	}
}
