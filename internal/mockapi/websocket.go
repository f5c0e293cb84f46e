package mockapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.wsMu.Lock()
	s.wsClients[conn] = make(map[string]bool)
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, conn)
		s.wsMu.Unlock()
	}()

	// Read subscription messages
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Action string   `json:"action"`
			Topics []string `json:"topics"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}

		s.wsMu.Lock()
		for _, topic := range req.Topics {
			switch req.Action {
			case "subscribe":
				s.wsClients[conn][topic] = true
			case "unsubscribe":
				delete(s.wsClients[conn], topic)
			}
		}
		s.wsMu.Unlock()
	}
}

// Subscribers counts connections subscribed to topic.
func (s *Server) Subscribers(topic string) int {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	n := 0
	for _, topics := range s.wsClients {
		if topics[topic] {
			n++
		}
	}
	return n
}

func (s *Server) broadcastWS(topic string, data any) {
	msg := map[string]any{
		"topic": topic,
		"data":  data,
	}
	msgJSON, _ := json.Marshal(msg)

	// Exclusive lock: gorilla connections allow one concurrent writer.
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for conn, topics := range s.wsClients {
		if topics[topic] {
			if err := conn.WriteMessage(websocket.TextMessage, msgJSON); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
			}
		}
	}
}
