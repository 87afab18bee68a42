package handler

import (
	"net/http"
	"strconv"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/service"
)

// StatsHandler serves mission history endpoints
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// TelemetryResponse is the body of GET /telemetry/recent
type TelemetryResponse struct {
	Packets []*domain.Telemetry `json:"packets"`
}

// HistoryResponse is the body of GET /station/events/history
type HistoryResponse struct {
	Events []domain.Event `json:"events"`
}

// GetMissionStats handles GET /stats/mission?mission_id=...
// Without mission_id the latest mission is used.
func (h *StatsHandler) GetMissionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.MissionStats(r.Context(), r.URL.Query().Get("mission_id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, stats)
}

// GetRecentTelemetry handles GET /telemetry/recent?mission_id=...&limit=...
func (h *StatsHandler) GetRecentTelemetry(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	packets, err := h.statsService.RecentTelemetry(r.Context(), r.URL.Query().Get("mission_id"), limit)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if packets == nil {
		packets = []*domain.Telemetry{}
	}

	RespondWithJSON(w, r, http.StatusOK, TelemetryResponse{Packets: packets})
}

// GetEventHistory handles GET /station/events/history?limit=...
func (h *StatsHandler) GetEventHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := h.statsService.EventHistory(r.Context(), limit)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}

	RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Events: events})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
