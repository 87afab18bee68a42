package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/series"
	"github.com/rsx/cansat-groundstation/internal/station"
)

// StationHandler serves the live station state
type StationHandler struct {
	station *station.Station
}

// NewStationHandler creates a new StationHandler
func NewStationHandler(st *station.Station) *StationHandler {
	return &StationHandler{
		station: st,
	}
}

// EventsResponse is the body of GET /station/events
type EventsResponse struct {
	Log    []domain.Event `json:"log"`
	Errors []domain.Event `json:"errors"`
}

// SeriesResponse is the body of GET /station/series/{name}
type SeriesResponse struct {
	Name    string          `json:"name"`
	Unit    string          `json:"unit"`
	Lines   int             `json:"lines"`
	Samples []series.Sample `json:"samples"`
}

// SeriesListResponse is the body of GET /station/series
type SeriesListResponse struct {
	Series []string `json:"series"`
}

// MapResponse is the body of GET /station/map
type MapResponse struct {
	URL string `json:"url"`
}

// TeamIDRequest is the body of PUT /station/team-id
type TeamIDRequest struct {
	TeamID int `json:"team_id"`
}

// GetStation handles GET /station
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, h.station.Snapshot())
}

// GetEvents handles GET /station/events
func (h *StationHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	log, errs := h.station.Events()
	RespondWithJSON(w, r, http.StatusOK, EventsResponse{Log: log, Errors: errs})
}

// ListSeries handles GET /station/series
func (h *StationHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, SeriesListResponse{Series: h.station.SeriesNames()})
}

// GetSeries handles GET /station/series/{name}
func (h *StationHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	win, err := h.station.Series(chi.URLParam(r, "name"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, SeriesResponse{
		Name:    win.Name(),
		Unit:    win.Unit(),
		Lines:   win.Lines(),
		Samples: win.Samples(),
	})
}

// GetMap handles GET /station/map
func (h *StationHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	url, err := h.station.MapURL()
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, MapResponse{URL: url})
}

// Reset handles POST /station/reset
func (h *StationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.station.ResetMission(r.Context()); err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, h.station.Snapshot())
}

// SetTeamID handles PUT /station/team-id
func (h *StationHandler) SetTeamID(w http.ResponseWriter, r *http.Request) {
	var req TeamIDRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	if err := h.station.SetTeamID(r.Context(), req.TeamID); err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, h.station.Snapshot())
}
