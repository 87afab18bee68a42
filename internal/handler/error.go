package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/log"
)

// ErrorResponse is the error envelope of every API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds an error code and a human readable message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError writes an error envelope
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// HandleError converts domain errors into HTTP responses
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.MapErrorToCode(err)
	switch code {
	case domain.CodeTeamExists, domain.CodeInvalidRoster, domain.CodeNoPortSelected, domain.CodeInvalidCommand,
		domain.CodePortUnavailable:
		RespondWithError(w, r, http.StatusBadRequest, string(code), err.Error())
	case domain.CodeNotFound:
		RespondWithError(w, r, http.StatusNotFound, string(code), err.Error())
	case domain.CodePortClosed, domain.CodePortAlreadyOpen, domain.CodeLinkBusy, domain.CodeNoGPSFix:
		RespondWithError(w, r, http.StatusConflict, string(code), err.Error())
	case domain.CodeConfirmationRequired:
		RespondWithError(w, r, http.StatusPreconditionRequired, string(code), err.Error())
	case domain.CodeUnauthorized:
		RespondWithError(w, r, http.StatusUnauthorized, string(code), "unauthorized")
	default:
		logger := log.WithComponent("http")
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		RespondWithError(w, r, http.StatusInternalServerError, string(code), "internal server error")
	}
}
