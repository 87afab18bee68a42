package domain

import "errors"

// Domain errors surfaced through the HTTP API
var (
	// ErrTeamExists is returned when a roster with the same team name already exists
	ErrTeamExists = errors.New("team already exists")

	// ErrInvalidRoster is returned for empty rosters or entries missing a name or role
	ErrInvalidRoster = errors.New("roster must be non-empty and every member needs an id, name and role")

	// ErrMemberNotFound is returned when a roster member does not exist
	ErrMemberNotFound = errors.New("member not found")

	// ErrTeamNotFound is returned when a team does not exist
	ErrTeamNotFound = errors.New("team not found")

	// ErrMissionNotFound is returned when a mission does not exist
	ErrMissionNotFound = errors.New("mission not found")

	// ErrPortClosed is returned when sending while the ground port is closed
	ErrPortClosed = errors.New("ground port is closed")

	// ErrPortUnavailable is returned when the device cannot be opened: missing, busy or denied
	ErrPortUnavailable = errors.New("cannot open ground port")

	// ErrPortAlreadyOpen is returned when opening the link while a port is already open
	ErrPortAlreadyOpen = errors.New("ground port already open")

	// ErrNoPortSelected is returned when opening the link without a port name
	ErrNoPortSelected = errors.New("select a port before connecting")

	// ErrLinkBusy is returned while a mission logfile transfer is in progress
	ErrLinkBusy = errors.New("logfile collection in progress")

	// ErrInvalidCommand is returned for malformed uplink command arguments
	ErrInvalidCommand = errors.New("invalid command")

	// ErrConfirmationRequired is returned for destructive commands sent without confirm=true
	ErrConfirmationRequired = errors.New("command requires confirmation")

	// ErrNoGPSFix is returned when no usable GPS position has been received yet
	ErrNoGPSFix = errors.New("no GPS data yet")

	// ErrUnknownSeries is returned for series names the station does not track
	ErrUnknownSeries = errors.New("unknown series")

	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken is returned when a JWT is not valid
	ErrInvalidToken = errors.New("invalid token")
)

// ErrorCode is an API error code
type ErrorCode string

// API error codes
const (
	CodeTeamExists           ErrorCode = "TEAM_EXISTS"
	CodeInvalidRoster        ErrorCode = "INVALID_ROSTER"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodePortClosed           ErrorCode = "PORT_CLOSED"
	CodeNoPortSelected       ErrorCode = "NO_PORT_SELECTED"
	CodePortUnavailable      ErrorCode = "PORT_UNAVAILABLE"
	CodePortAlreadyOpen      ErrorCode = "PORT_ALREADY_OPEN"
	CodeLinkBusy             ErrorCode = "LINK_BUSY"
	CodeInvalidCommand       ErrorCode = "INVALID_COMMAND"
	CodeConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"
	CodeNoGPSFix             ErrorCode = "NO_GPS_FIX"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// MapErrorToCode converts domain errors into API error codes
func MapErrorToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrTeamExists):
		return CodeTeamExists
	case errors.Is(err, ErrInvalidRoster):
		return CodeInvalidRoster
	case errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrTeamNotFound), errors.Is(err, ErrMissionNotFound),
		errors.Is(err, ErrUnknownSeries):
		return CodeNotFound
	case errors.Is(err, ErrPortClosed):
		return CodePortClosed
	case errors.Is(err, ErrNoPortSelected):
		return CodeNoPortSelected
	case errors.Is(err, ErrPortUnavailable):
		return CodePortUnavailable
	case errors.Is(err, ErrPortAlreadyOpen):
		return CodePortAlreadyOpen
	case errors.Is(err, ErrLinkBusy):
		return CodeLinkBusy
	case errors.Is(err, ErrInvalidCommand):
		return CodeInvalidCommand
	case errors.Is(err, ErrConfirmationRequired):
		return CodeConfirmationRequired
	case errors.Is(err, ErrNoGPSFix):
		return CodeNoGPSFix
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
