package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"
)

// maxBodyBytes bounds operator request bodies
const maxBodyBytes = 64 << 10

// RespondWithJSON writes data as JSON with the given status code
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// decodeBody reads a JSON body into v and answers 400 on failure. An empty body
// is accepted when optional is set and leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
	return false
}
