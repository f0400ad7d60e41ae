// Package api exposes the acquisition service over HTTP: imagery
// resolution, geocoding, nearby places, activity enrichment, page
// metadata and the operator endpoints (stats, cache, log, health).
package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"fernweh/pkg/logging"
	"fernweh/pkg/probe"
	"fernweh/pkg/ratelimit"
	"fernweh/pkg/version"
)

// NewServer wires the handlers into the mux and returns the configured
// HTTP server.
func NewServer(addr string, images *ImagesHandler, locations *LocationsHandler, enrichH *EnrichHandler, pagemetaH *PagemetaHandler, cacheH *CacheHandler, statsH *StatsHandler, healthH *HealthHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", healthH.Handle)
	mux.HandleFunc("GET /api/version", handleVersion)

	mux.HandleFunc("GET /api/images", images.HandleResolve)

	mux.HandleFunc("GET /api/locations/nearby", locations.HandleNearby)
	mux.HandleFunc("POST /api/geocode", locations.HandleGeocode)

	mux.HandleFunc("POST /api/enrich", enrichH.HandleBatch)
	mux.HandleFunc("POST /api/enrich/watch", enrichH.HandleStartWatch)
	mux.HandleFunc("GET /api/enrich/watch", enrichH.HandleWatchSocket)

	mux.HandleFunc("GET /api/pagemeta", pagemetaH.Handle)

	mux.HandleFunc("GET /api/cache/stats", cacheH.HandleStats)
	mux.HandleFunc("POST /api/cache/prune", cacheH.HandlePrune)

	mux.HandleFunc("GET /api/stats", statsH.Handle)
	mux.HandleFunc("GET /api/log", handleLog)

	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
		// Shut down from a goroutine so the response can flush first
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      withRequestLog(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

// HealthHandler re-runs the startup probes for liveness checks.
type HealthHandler struct {
	probes []probe.Probe
}

func NewHealthHandler(probes []probe.Probe) *HealthHandler {
	return &HealthHandler{probes: probes}
}

type healthResponse struct {
	Healthy bool           `json:"healthy"`
	Version string         `json:"version"`
	Checks  []probe.Status `json:"checks"`
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	healthy, checks := probe.Health(r.Context(), h.probes)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Healthy: healthy, Version: version.Version, Checks: checks})
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack exposes the underlying connection; the websocket upgrade
// needs it.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// withRequestLog logs one line per request to the request log.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger := logging.RequestLogger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("API: response encoding failed", "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps service errors onto HTTP: denied admissions become
// 429 with a Retry-After hint; everything else is an internal error
// with the detail logged, not leaked.
func writeError(w http.ResponseWriter, err error) {
	var rl *ratelimit.Error
	if errors.As(err, &rl) {
		seconds := int(rl.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: rl.Error()})
		return
	}
	slog.Error("API: request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

// parseFloatParam reads a required float query parameter.
func parseFloatParam(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
