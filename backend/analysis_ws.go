package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type queueEntryDTO struct {
	ID                  string   `json:"id"`
	Size                int      `json:"size"`
	Cells               []string `json:"cells"`
	MaximizersTurn      bool     `json:"maximizers_turn"`
	Depth               int      `json:"depth"`
	Mode                string   `json:"mode"`
	Hits                int      `json:"hits"`
	Analyzing           bool     `json:"analyzing"`
	AnalysisStartedAtMs int64    `json:"analysis_started_at_ms"`
}

type queueResponse struct {
	Queue        []queueEntryDTO `json:"queue"`
	TotalInQueue int             `json:"total_in_queue"`
}

type queuePayload struct {
	Event        string           `json:"event"`
	Entry        *queueEventEntry `json:"entry,omitempty"`
	TotalInQueue int              `json:"total_in_queue"`
	UpdatedAt    int64            `json:"updated_at_ms"`
}

type queueEventEntry struct {
	ID                  string `json:"id"`
	Depth               int    `json:"depth"`
	Mode                string `json:"mode"`
	Hits                int    `json:"hits"`
	Analyzing           bool   `json:"analyzing"`
	AnalysisStartedAtMs int64  `json:"analysis_started_at_ms"`
}

func serveWS(hub *Hub, analyzer *Analyzer, backlog *analysisBacklog, hb wsHeartbeat, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)

	client.sendJSON(wsMessage{Type: "config", Payload: mustMarshal(GetConfig())})
	client.sendJSON(wsMessage{Type: "queue", Payload: mustMarshal(queuePayload{
		Event:        "snapshot",
		TotalInQueue: backlog.Len(),
		UpdatedAt:    time.Now().UnixMilli(),
	})})

	go func() {
		defer conn.Close()
		if err := hb.pump(conn, client.send); err != nil {
			log.Debug().Err(err).Msg("ws-write-failed")
		}
	}()

	hb.watchPongs(conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "analyze":
			var req analyzeRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				hub.sendTo(client, wsError("invalid payload"))
				continue
			}
			pos, err := req.position(GetConfig())
			if err != nil {
				hub.sendTo(client, wsError(err.Error()))
				continue
			}
			go func() {
				resp := analyzer.Analyze(pos)
				hub.sendTo(client, wsMessage{Type: "analysis", Payload: mustMarshal(resp)})
			}()
		case "request_queue":
			hub.sendTo(client, wsMessage{Type: "queue", Payload: mustMarshal(queueResponse{
				Queue:        backlog.TopQueue(queueTopBoardsLimit()),
				TotalInQueue: backlog.Len(),
			})})
		default:
			log.Debug().Str("type", msg.Type).Msg("ws-unknown-message")
		}
	}
}

func wsError(message string) wsMessage {
	return wsMessage{Type: "error", Payload: mustMarshal(map[string]string{"error": message})}
}

func queueEntryToDTO(entry *backlogEntry) queueEntryDTO {
	return queueEntryDTO{
		ID:                  hashToBoardID(entry.key.Hash),
		Size:                entry.key.Size,
		Cells:               boardCells(entry.pos.game),
		MaximizersTurn:      entry.key.MaximizersTurn,
		Depth:               entry.key.Depth,
		Mode:                entry.key.Mode,
		Hits:                entry.hits,
		Analyzing:           entry.analyzing,
		AnalysisStartedAtMs: entry.analysisStartedAtMs,
	}
}

func queueEntryToEventEntry(entry *backlogEntry) queueEventEntry {
	return queueEventEntry{
		ID:                  hashToBoardID(entry.key.Hash),
		Depth:               entry.key.Depth,
		Mode:                entry.key.Mode,
		Hits:                entry.hits,
		Analyzing:           entry.analyzing,
		AnalysisStartedAtMs: entry.analysisStartedAtMs,
	}
}

func sortQueue(entries []*backlogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return compareQueuePriority(entries[i], entries[j]) < 0
	})
}

// compareQueuePriority orders by hits, then stones on the board, then age.
func compareQueuePriority(a, b *backlogEntry) int {
	if a.hits != b.hits {
		if a.hits > b.hits {
			return -1
		}
		return 1
	}
	stonesA := countStones(a)
	stonesB := countStones(b)
	if stonesA != stonesB {
		if stonesA > stonesB {
			return -1
		}
		return 1
	}
	if !a.created.Equal(b.created) {
		if a.created.Before(b.created) {
			return -1
		}
		return 1
	}
	if a.key.Hash < b.key.Hash {
		return -1
	}
	if a.key.Hash > b.key.Hash {
		return 1
	}
	return 0
}

func countStones(entry *backlogEntry) int {
	count := 0
	for _, c := range entry.pos.game.Cells {
		if c != 0 {
			count++
		}
	}
	return count
}

func queueTopBoardsLimit() int {
	limit := GetConfig().AiQueueTopBoards
	if limit <= 0 {
		return 10
	}
	return limit
}
