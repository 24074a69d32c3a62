// Package handlers implements the HTTP handlers for the dashboard API.
package handlers

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/helioview/helioview/pkg/datastore"
)

// MaxUploadBytes caps the size of uploaded CSV files.
const MaxUploadBytes = 10 << 20 // 10 MiB

// API holds the dependencies shared by all handlers.
type API struct {
	log   *slog.Logger
	store *datastore.Store

	// uploadLimiter throttles dataset uploads per client IP.
	uploadLimiter *RateLimiter
}

// New creates the handler set backed by the given dataset store.
func New(log *slog.Logger, store *datastore.Store) *API {
	return &API{
		log:   log,
		store: store,
		// 10 uploads per minute per IP with a burst of 5.
		uploadLimiter: NewRateLimiter(rate.Every(time.Minute/10), 5),
	}
}

// Routes returns the router for everything under /api.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/config", a.GetConfig)
	r.Get("/sites", a.GetSites)

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", a.LoadDataset)
		r.With(RateLimitMiddleware(a.uploadLimiter)).Post("/upload", a.UploadDataset)

		r.Route("/{ref}", func(r chi.Router) {
			r.Get("/", a.GetDataset)
			r.Get("/metrics", a.GetMetrics)
			r.Get("/bounds", a.GetBounds)
			r.Get("/summary", a.GetSummary)
			r.Get("/top", a.GetTop)
			r.Get("/rows", a.GetRows)
			r.Get("/charts/{kind}", a.GetChart)
			r.Get("/export", a.ExportCSV)
			r.Get("/report", a.ExportReport)
		})
	})

	return r
}
