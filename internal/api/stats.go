package api

import (
	"log/slog"
	"net/http"
	"time"

	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

// StatsHandler reports per-service usage: live counters for this
// process merged with today's persisted ledger row.
type StatsHandler struct {
	tracker *tracker.Tracker
	usage   store.UsageStore
}

func NewStatsHandler(trk *tracker.Tracker, usage store.UsageStore) *StatsHandler {
	return &StatsHandler{tracker: trk, usage: usage}
}

type serviceStatsDTO struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	HitRate     int64 `json:"hit_rate"`
	APISuccess  int64 `json:"api_success"`
	APIFailures int64 `json:"api_errors"`
	APIZero     int64 `json:"api_zero"`
	RateLimited int64 `json:"rate_limited"`

	// Ledger totals for today, surviving restarts. The live counters
	// above reset with the process.
	TodaySuccess     int64 `json:"today_success"`
	TodayFailures    int64 `json:"today_errors"`
	TodayRateLimited int64 `json:"today_rate_limited"`
}

type statsResponse struct {
	Day      string                     `json:"day"`
	Services map[string]serviceStatsDTO `json:"services"`
}

// Handle returns the merged usage view.
// GET /api/stats
func (h *StatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC().Format("2006-01-02")
	services := make(map[string]serviceStatsDTO)

	for name, s := range h.tracker.Snapshot() {
		dto := serviceStatsDTO{
			CacheHits:   s.CacheHits,
			CacheMisses: s.CacheMisses,
			APISuccess:  s.APISuccess,
			APIFailures: s.APIFailures,
			APIZero:     s.APIZero,
			RateLimited: s.RateLimited,
		}
		if total := s.CacheHits + s.CacheMisses; total > 0 {
			dto.HitRate = (s.CacheHits * 100) / total
		}
		services[name] = dto
	}

	if h.usage != nil {
		rows, err := h.usage.GetUsage(r.Context(), day)
		if err != nil {
			slog.Warn("API: usage ledger read failed", "error", err)
		}
		for _, u := range rows {
			dto := services[u.Service]
			dto.TodaySuccess = u.Success
			dto.TodayFailures = u.Failure
			dto.TodayRateLimited = u.RateLimited
			services[u.Service] = dto
		}
	}

	writeJSON(w, http.StatusOK, statsResponse{Day: day, Services: services})
}
