package api

import (
	"net/http"

	"fernweh/pkg/db"
	"fernweh/pkg/db/maintenance"
	"fernweh/pkg/store"
)

// MicroCache reports and sweeps the resolver's per-level cache.
type MicroCache interface {
	MicroCacheLen() int
	SweepMicroCache() int
}

// CacheHandler serves cache introspection and maintenance.
type CacheHandler struct {
	db    *db.DB
	cache store.CacheStore
	micro MicroCache
}

// NewCacheHandler creates the handler. micro may be nil.
func NewCacheHandler(d *db.DB, cache store.CacheStore, micro MicroCache) *CacheHandler {
	return &CacheHandler{db: d, cache: cache, micro: micro}
}

type cacheStatsResponse struct {
	Types      []store.CacheTypeStats `json:"types"`
	TotalRows  int64                  `json:"total_rows"`
	TotalBytes int64                  `json:"total_bytes"`
	MicroLen   int                    `json:"micro_len"`
}

// HandleStats reports per-type row counts and sizes.
// GET /api/cache/stats
func (h *CacheHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.CacheStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		stats = []store.CacheTypeStats{}
	}

	resp := cacheStatsResponse{Types: stats}
	for _, s := range stats {
		resp.TotalRows += s.Count
		resp.TotalBytes += s.Bytes
	}
	if h.micro != nil {
		resp.MicroLen = h.micro.MicroCacheLen()
	}
	writeJSON(w, http.StatusOK, resp)
}

type pruneResponse struct {
	CacheRows int64 `json:"cache_rows"`
	UsageRows int64 `json:"usage_rows"`
	MicroRows int   `json:"micro_rows"`
}

// HandlePrune drops expired cache rows, old usage rows and stale
// micro-cache entries on demand. The scheduler does the same on its own
// clock; this is the operator's immediate version.
// POST /api/cache/prune
func (h *CacheHandler) HandlePrune(w http.ResponseWriter, r *http.Request) {
	resp := pruneResponse{
		CacheRows: maintenance.PruneCache(h.db),
		UsageRows: maintenance.PruneUsage(h.db),
	}
	if h.micro != nil {
		resp.MicroRows = h.micro.SweepMicroCache()
	}
	writeJSON(w, http.StatusOK, resp)
}
