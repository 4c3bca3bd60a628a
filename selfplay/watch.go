package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type queueEvent struct {
	Event        string `json:"event"`
	TotalInQueue int    `json:"total_in_queue"`
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws/"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws/"
	default:
		return baseURL + "/ws/"
	}
}

// watchEvents logs the events the backend pushes until ctx is done.
func watchEvents(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(1 << 20)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		logEvent(msg)
	}
}

func logEvent(msg wsMessage) {
	switch msg.Type {
	case "analysis":
		var resp analyzeResponse
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			return
		}
		log.Info().
			Str("hash", resp.Hash).
			Int("best-moves", len(resp.Moves)).
			Int64("nodes", resp.Nodes).
			Int64("prunes", resp.Prunes).
			Float64("elapsed-ms", resp.ElapsedMs).
			Msg("watch-analysis")
	case "queue":
		var ev queueEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return
		}
		log.Info().Str("event", ev.Event).Int("queued", ev.TotalInQueue).Msg("watch-queue")
	case "ping":
	default:
		log.Debug().Str("type", msg.Type).Msg("watch-event")
	}
}
