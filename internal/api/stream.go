package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"doora/internal/bootstrap/logging"
	"doora/internal/ports"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type changePayload struct {
	Kind          string `json:"kind"`
	RecordID      string `json:"record_id"`
	RequesterID   string `json:"requester_id"`
	DelegateID    string `json:"delegate_id"`
	DeliveryLabel string `json:"delivery_label"`
	ActorID       string `json:"actor_id,omitempty"`
}

// handleStream pushes record changes to a websocket client. The optional
// user query parameter narrows the stream to changes visible to that user.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(r.Context(), "websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	changes, unsubscribe := s.feed.Subscribe(ports.ChangeFilter{UserID: userID})
	defer unsubscribe()

	// Drain the client so close frames and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(changePayload{
				Kind:          string(change.Kind),
				RecordID:      change.RecordID,
				RequesterID:   change.RequesterID,
				DelegateID:    change.DelegateID,
				DeliveryLabel: change.DeliveryLabel,
				ActorID:       change.ActorID,
			}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
