package handler

import (
	"net/http"

	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/station"
)

// LinkHandler serves the ground port endpoints
type LinkHandler struct {
	station *station.Station
}

// NewLinkHandler creates a new LinkHandler
func NewLinkHandler(st *station.Station) *LinkHandler {
	return &LinkHandler{
		station: st,
	}
}

// OpenPortRequest is the body of POST /link/open
type OpenPortRequest struct {
	Port string `json:"port"`
}

// PortsResponse is the body of GET /link/ports
type PortsResponse struct {
	Ports []link.PortInfo `json:"ports"`
}

// ListPorts handles GET /link/ports
func (h *LinkHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.station.ListPorts(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if ports == nil {
		ports = []link.PortInfo{}
	}

	RespondWithJSON(w, r, http.StatusOK, PortsResponse{Ports: ports})
}

// Open handles POST /link/open
func (h *LinkHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenPortRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	if err := h.station.OpenPort(r.Context(), req.Port); err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, h.station.Snapshot())
}

// Close handles POST /link/close
func (h *LinkHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.station.ClosePort(r.Context()); err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, h.station.Snapshot())
}
