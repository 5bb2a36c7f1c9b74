// Package api exposes the Recommendation Consensus Pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/cache"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/pipeline"
	"github.com/sells-group/recommend-consensus/internal/resilience"
)

// RequestTimeout bounds how long a single recommendation request may run
// end to end, independent of any individual provider's own timeout.
const RequestTimeout = 2 * time.Minute

// NewRouter builds the chi router exposing POST /api/recommendations and
// GET /health, following the teacher's mux-building convention of handing
// back a fully wired http.Handler. breakers may be nil, in which case the
// health response omits per-provider circuit state.
func NewRouter(orch Runner, store cache.Store, breakers *resilience.ServiceBreakers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", healthHandler(store, breakers))
	r.Post("/api/recommendations", recommendationsHandler(orch))

	return r
}

func healthHandler(store cache.Store, breakers *resilience.ServiceBreakers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if store != nil {
			if _, err := store.Stats(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}

		body := map[string]any{"status": "ok"}
		if breakers != nil {
			states := make(map[string]string)
			for provider, state := range breakers.States() {
				states[provider] = state.String()
			}
			body["providers"] = states
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// recommendationRequest is the wire shape accepted at POST /api/recommendations.
type recommendationRequest struct {
	Latitude     *float64          `json:"latitude"`
	Longitude    *float64          `json:"longitude"`
	Address      string            `json:"address"`
	Categories   []model.Category  `json:"categories"`
	MaxResults   int               `json:"maxResults"`
	RadiusMeters int               `json:"radiusMeters"`
	ForceRefresh bool              `json:"forceRefresh"`
	UserAPIKeys  map[string]string `json:"userApiKeys"`
}

func recommendationsHandler(orch Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		for _, c := range req.Categories {
			if !model.ValidCategories[c] {
				writeError(w, http.StatusBadRequest, "unrecognized category: "+string(c))
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
		defer cancel()

		resp, err := orch.Run(ctx, model.Request{
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
			Address:      req.Address,
			Categories:   req.Categories,
			MaxResults:   req.MaxResults,
			RadiusMeters: req.RadiusMeters,
			ForceRefresh: req.ForceRefresh,
			UserAPIKeys:  req.UserAPIKeys,
		})
		if err != nil {
			writeRunError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			zap.L().Error("api: encode response failed", zap.Error(encErr))
		}
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInputInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrExhaustedProviders):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, pipeline.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		zap.L().Error("api: pipeline run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Runner is the subset of *pipeline.Orchestrator the API depends on, kept
// as an interface so handlers are testable with a fake.
type Runner interface {
	Run(ctx context.Context, req model.Request) (*model.Response, error)
}
