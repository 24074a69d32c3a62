package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helioview/helioview/pkg/dataset"
)

// ErrorResponse is the JSON body returned for all error statuses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeDatasetError maps dataset errors onto HTTP statuses. Load failures are
// 422 because the request was well formed but the file could not be parsed;
// unknown metrics are 400 because the caller named a metric the dataset does
// not carry.
func writeDatasetError(w http.ResponseWriter, err error) {
	var loadErr *dataset.LoadError
	if errors.As(err, &loadErr) {
		writeError(w, http.StatusUnprocessableEntity, "load_error", loadErr.Error())
		return
	}
	var notFound *dataset.MetricNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusBadRequest, "metric_not_found", notFound.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
