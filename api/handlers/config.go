package handlers

import (
	"net/http"

	"github.com/helioview/helioview/pkg/charts"
	"github.com/helioview/helioview/pkg/dataset"
)

// PublicConfig holds configuration that is safe to expose to the frontend.
type PublicConfig struct {
	Metrics         []string `json:"metrics"`
	MaxUploadBytes  int64    `json:"maxUploadBytes"`
	MaxBubblePoints int      `json:"maxBubblePoints"`
}

// GetConfig returns public configuration for the frontend.
func (a *API) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PublicConfig{
		Metrics:         dataset.MetricAllowList,
		MaxUploadBytes:  MaxUploadBytes,
		MaxBubblePoints: charts.MaxBubblePoints,
	})
}
