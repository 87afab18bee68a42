package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rsx/cansat-groundstation/internal/command"
	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/middleware"
	"github.com/rsx/cansat-groundstation/internal/station"
)

// Uplink actions accepted by POST /commands/{action}
const (
	ActionTest         = "test"
	ActionSetTime      = "set-time"
	ActionRestart      = "restart"
	ActionServo        = "servo"
	ActionCameraToggle = "camera-toggle"
	ActionCameraStatus = "camera-status"
	ActionRelease      = "release"
	ActionSim          = "sim"
	ActionSimPressure  = "simp"
	ActionCalibrate    = "calibrate"
	ActionLogs         = "logs"
	ActionTelemetryOn  = "telemetry-on"
	ActionTelemetryOff = "telemetry-off"
)

// CommandHandler serves the uplink command endpoint
type CommandHandler struct {
	station *station.Station
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(st *station.Station) *CommandHandler {
	return &CommandHandler{
		station: st,
	}
}

// CommandRequest is the optional body of POST /commands/{action}
type CommandRequest struct {
	Confirm  bool   `json:"confirm"`
	ServoID  *int   `json:"servo_id"`
	Value    int    `json:"value"`
	Camera   int    `json:"camera"`
	Mode     string `json:"mode"`
	Source   string `json:"source"`
	// Pressure is the simulated barometric reading in pascals
	Pressure string `json:"pressure"`
}

// CommandResponse is the body returned after a command was sent
type CommandResponse struct {
	Action  string               `json:"action"`
	SentBy  *middleware.Operator `json:"sent_by,omitempty"`
	Mission *domain.Mission      `json:"mission,omitempty"`
}

// Send handles POST /commands/{action}
func (h *CommandHandler) Send(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	var req CommandRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	resp := CommandResponse{Action: action}
	logger := log.WithComponent("uplink")
	ev := logger.Info().Str("action", action)
	if op, ok := middleware.OperatorFromContext(r.Context()); ok {
		resp.SentBy = &op
		ev = ev.Str("member_id", op.MemberID).Str("role", op.Role)
	}

	mission, err := h.dispatch(r, action, req)
	if err != nil {
		ev.Err(err).Msg("operator command refused")
		HandleError(w, r, err)
		return
	}
	ev.Msg("operator command sent")

	resp.Mission = mission
	RespondWithJSON(w, r, http.StatusOK, resp)
}

func (h *CommandHandler) dispatch(r *http.Request, action string, req CommandRequest) (*domain.Mission, error) {
	ctx := r.Context()
	st := h.station

	switch action {
	case ActionTest:
		return nil, st.Test(ctx)
	case ActionSetTime:
		switch strings.ToLower(req.Source) {
		case "", "utc":
			return nil, st.SetTime(ctx, false)
		case "gps":
			return nil, st.SetTime(ctx, true)
		default:
			return nil, fmt.Errorf("%w: source must be gps or utc", domain.ErrInvalidCommand)
		}
	case ActionRestart:
		return nil, st.Restart(ctx)
	case ActionServo:
		if req.ServoID == nil {
			return nil, fmt.Errorf("%w: servo_id is required", domain.ErrInvalidCommand)
		}
		return nil, st.ProgramServo(ctx, *req.ServoID, req.Value)
	case ActionCameraToggle:
		return nil, st.ToggleCamera(ctx, req.Camera)
	case ActionCameraStatus:
		return nil, st.CameraStatus(ctx)
	case ActionRelease:
		return nil, st.ForceRelease(ctx, req.Confirm)
	case ActionSim:
		return nil, st.SetSimMode(ctx, command.SimMode(strings.ToUpper(req.Mode)))
	case ActionSimPressure:
		return nil, st.SimPressure(ctx, req.Pressure)
	case ActionCalibrate:
		return nil, st.Calibrate(ctx)
	case ActionLogs:
		return nil, st.GetLogs(ctx, req.Confirm)
	case ActionTelemetryOn:
		return st.StartMission(ctx)
	case ActionTelemetryOff:
		return st.EndMission(ctx, req.Confirm)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidCommand, action)
	}
}
