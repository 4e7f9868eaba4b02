package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"splat-tracker/internal/api"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server exposes the query engine over HTTP and WebSocket.
type Server struct {
	history  *service.HistoryService
	agg      *service.AggregationService
	batch    *service.BatchService
	ingest   *service.IngestService
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func New(
	history *service.HistoryService,
	agg *service.AggregationService,
	batch *service.BatchService,
	ingest *service.IngestService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		history: history,
		agg:     agg,
		batch:   batch,
		ingest:  ingest,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/accounts/{account}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}/history/live", s.handleHistoryLive).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}/groups", s.handleListGroups).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}/groups/{group}", s.handleGroup).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}/sync", s.handleSync).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/favorite", s.handleFavorite).Methods(http.MethodPost)
	api.HandleFunc("/matches/batch", s.handleBatch).Methods(http.MethodPost)

	return r
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidFilter), errors.Is(err, domain.ErrInvalidPage):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrLookupMiss):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, api.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
