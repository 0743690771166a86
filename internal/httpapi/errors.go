// Package httpapi exposes the gateway's Cypher-over-HTTP surface: a single
// `POST /db/{database}/tx/commit` route that behaves as either a batch JSON
// endpoint or a streaming ndjson endpoint depending on the request's Accept
// header, plus the ambient request-id and authentication middleware every
// route runs behind.
package httpapi

import (
	"encoding/json"
	"net/http"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// invalidQueryEnvelope is §6.2's bit-exact 400 response body for a rejected
// statement: {"error":"Invalid query","message":<original text>,"status":400}.
// It is spec-mandated byte-for-byte, so it is rendered directly rather than
// through the generic error envelope below.
type invalidQueryEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// errorEnvelope is the generic error body for every failure that is not
// CodeInvalidQuery: AUTH_ERROR, TRANSPORT_ERROR, and unexpected failures.
type errorEnvelope struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeError renders err as the appropriate JSON error body and status
// code. CodeInvalidQuery gets the spec-mandated envelope carrying the
// original query text as message; every other *sserr.Error code is
// rendered generically by its HTTPStatus(), except CodeTransportError,
// which is answered with 500; anything that is not an
// *sserr.Error at all is treated as an unexpected internal failure.
func writeError(w http.ResponseWriter, err error) {
	if sserr.HasCode(err, sserr.CodeInvalidQuery) {
		sErr, _ := sserr.AsError(err)
		writeJSON(w, http.StatusBadRequest, invalidQueryEnvelope{
			Error:   "Invalid query",
			Message: sErr.Message,
			Status:  http.StatusBadRequest,
		})
		return
	}

	sErr, ok := sserr.AsError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error:  "Internal server error",
			Status: http.StatusInternalServerError,
		})
		return
	}
	status := sErr.HTTPStatus()
	if sErr.Code == sserr.CodeTransportError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorEnvelope{
		Error:  sErr.Message,
		Status: status,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
