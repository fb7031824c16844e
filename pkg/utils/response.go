package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"daan-backend/internal/services"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] failed to encode response: %v", err)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps the service error categories onto HTTP statuses:
// validation 400, business rule 422, conflict 409, not found 404,
// anything else 500 with the detail kept out of the response body.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrBusinessRule):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrConcurrentUpdate):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[HTTP] internal error: %v", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
