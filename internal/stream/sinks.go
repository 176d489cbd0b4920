package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SSESink frames events as server-sent events over an HTTP response.
type SSESink struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewSSESink prepares a response for SSE streaming. The writer must support
// flushing.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("stream: response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSESink{w: w, f: f}, nil
}

func (s *SSESink) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("stream: marshal %s: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// WSSink frames events as JSON text messages over a websocket. Writes are
// serialized; gorilla connections allow one concurrent writer.
type WSSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (s *WSSink) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(wsFrame{Event: event, Data: data})
}
