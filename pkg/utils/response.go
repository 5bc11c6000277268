package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"parcel-backend/internal/apperr"

	log "github.com/sirupsen/logrus"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

var production bool

// SetProduction hides wrapped error detail from response bodies.
func SetProduction(p bool) {
	production = p
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// Success writes a successful envelope.
func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, Response{Success: true, Message: message, Data: data})
}

// Error writes err with the status of its kind.
func Error(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	resp := Response{
		Success: false,
		Message: apperr.Message(err),
		Error:   string(apperr.KindOf(err)),
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Err != nil && !production {
			resp.Detail = ae.Err.Error()
		}
	} else if !production {
		resp.Detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %s: %v", resp.Error, err)
	}
	JSON(w, status, resp)
}

// BadRequest is shorthand for malformed input detected in handlers.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apperr.Validation("%s", message))
}
