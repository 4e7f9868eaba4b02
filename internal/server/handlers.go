package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"splat-tracker/internal/constants"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/service"

	"github.com/gorilla/mux"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account"]

	filter, page, err := parseFilter(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	rows, err := s.history.RunOnce(r.Context(), accountID, filter, page)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if rows == nil {
		rows = []service.HistoryRow{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account"]

	page := parsePage(r)
	groups, err := s.agg.ListGroups(r.Context(), accountID, page)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if groups == nil {
		groups = []domain.GroupStats{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["account"]

	groupID, err := strconv.ParseInt(vars["group"], 10, 64)
	if err != nil {
		s.respondError(w, domain.ErrInvalidFilter)
		return
	}

	stats, err := s.agg.GroupStats(r.Context(), accountID, groupID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if stats == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "group not found"})
		return
	}
	s.respondJSON(w, http.StatusOK, groupStatsPayload(stats))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["account"]

	inserted, err := s.ingest.Sync(r.Context(), accountID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Value bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, domain.ErrInvalidFilter)
		return
	}

	if err := s.history.SetFavorite(r.Context(), id, body.Value); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"favorite": body.Value})
}

// handleBatch applies a bulk flag change and streams cumulative progress as
// newline-delimited JSON, one line per committed chunk.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs   []string `json:"ids"`
		Flag  string   `json:"flag"` // "deleted" or "favorite"
		Value bool     `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		s.respondError(w, domain.ErrInvalidFilter)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	onProgress := func(p service.Progress) {
		_ = enc.Encode(p)
		if flusher != nil {
			flusher.Flush()
		}
	}

	var err error
	switch body.Flag {
	case "favorite":
		err = s.batch.SetFavorite(r.Context(), body.IDs, body.Value, onProgress)
	case "", "deleted":
		err = s.batch.SetDeleted(r.Context(), body.IDs, body.Value, onProgress)
	default:
		s.respondError(w, domain.ErrInvalidFilter)
		return
	}

	var partial *domain.PartialBatchError
	if errors.As(err, &partial) {
		_ = enc.Encode(map[string]any{
			"error":     partial.Error(),
			"processed": partial.Processed,
			"total":     partial.Total,
		})
		return
	}
	if err != nil {
		_ = enc.Encode(map[string]string{"error": err.Error()})
	}
}

// groupStatsPayload attaches the read-computed ratios, mapping NaN to null
// since JSON has no NaN.
func groupStatsPayload(stats *domain.GroupStats) map[string]any {
	payload := map[string]any{"stats": stats}
	if rate := stats.VictoryRate(); rate == rate {
		payload["victoryRate"] = rate
	}
	if kd := stats.KD(); kd == kd {
		payload["kd"] = kd
	}
	if kad := stats.KAD(); kad == kad {
		payload["kad"] = kad
	}
	return payload
}

func parseFilter(r *http.Request) (domain.Filter, domain.Page, error) {
	q := r.URL.Query()
	f := domain.DefaultFilter()

	f.Modes = splitParam(q.Get("modes"))
	f.Rules = splitParam(q.Get("rules"))

	var err error
	if f.StageIDs, err = splitIntParam(q.Get("stages")); err != nil {
		return f, domain.Page{}, domain.ErrInvalidFilter
	}
	if f.WeaponIDs, err = splitIntParam(q.Get("weapons")); err != nil {
		return f, domain.Page{}, domain.ErrInvalidFilter
	}

	if raw := q.Get("start"); raw != "" {
		if f.Start, err = time.Parse(time.RFC3339, raw); err != nil {
			return f, domain.Page{}, domain.ErrInvalidFilter
		}
	}
	if raw := q.Get("end"); raw != "" {
		if f.End, err = time.Parse(time.RFC3339, raw); err != nil {
			return f, domain.Page{}, domain.ErrInvalidFilter
		}
	}

	switch q.Get("visibility") {
	case "", "active":
		f.ShowOnlyActive = true
		f.ShowDeleted = false
	case "deleted":
		f.ShowOnlyActive = false
		f.ShowDeleted = true
	case "all":
		f.ShowOnlyActive = true
		f.ShowDeleted = true
	default:
		return f, domain.Page{}, domain.ErrInvalidFilter
	}

	f.FavoritesOnly = q.Get("favorites") == "true"

	identity := domain.PlayerIdentity{
		PlayerID: q.Get("player_id"),
		Name:     q.Get("player_name"),
		NameID:   q.Get("player_name_id"),
	}
	if !identity.IsZero() {
		f.Player = &identity
	}

	return f, parsePage(r), nil
}

func parsePage(r *http.Request) domain.Page {
	q := r.URL.Query()
	page := domain.Page{Limit: constants.DefaultPageSize}

	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page.Limit = v
		}
	}
	if page.Limit > constants.MaxPageSize {
		page.Limit = constants.MaxPageSize
	}
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page.Offset = v
		}
	}
	return page
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func splitIntParam(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
