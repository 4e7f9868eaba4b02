package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleHistoryLive upgrades to WebSocket, opens a live query for the
// requested filter, and pushes each fresh result set as one JSON message.
// Closing the socket cancels the subscription.
func (s *Server) handleHistoryLive(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account"]

	filter, page, err := parseFilter(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub, err := s.history.OpenLive(r.Context(), accountID, filter, page)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer sub.Cancel()

	s.logger.Info().
		Str("account_id", accountID).
		Str("subscription_id", sub.ID()).
		Msg("live query opened")

	// Read pump: we expect no client messages, but reading is what
	// surfaces the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case rows := <-sub.Results():
			if err := conn.WriteJSON(map[string]any{"rows": rows}); err != nil {
				s.logger.Debug().Err(err).Str("subscription_id", sub.ID()).Msg("live push failed, closing")
				return
			}
		}
	}
}
