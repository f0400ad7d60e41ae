package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"fernweh/pkg/enrich"
	"fernweh/pkg/model"
	"fernweh/pkg/progressive"
)

// EnrichHandler serves batch activity enrichment and the watch socket
// for progressive location loads.
type EnrichHandler struct {
	service  *enrich.Service
	upgrader websocket.Upgrader
}

func NewEnrichHandler(service *enrich.Service) *EnrichHandler {
	return &EnrichHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Watch IDs are single-use capabilities; origin adds nothing.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type enrichRequest struct {
	Activities []model.Activity `json:"activities"`
}

type enrichItem struct {
	Activity model.Activity `json:"activity"`
	Error    string         `json:"error,omitempty"`
}

type enrichResponse struct {
	Items  []enrichItem `json:"items"`
	Failed int          `json:"failed"`
}

// HandleBatch enriches a set of activities in one request. Per-item
// failures are reported in their slot; the call itself fails only on
// bad input or cancellation.
// POST /api/enrich
func (h *EnrichHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.Activities) == 0 {
		writeBadRequest(w, "activities is required")
		return
	}

	results, err := h.service.EnrichActivities(r.Context(), req.Activities, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := enrichResponse{Items: make([]enrichItem, 0, len(results))}
	for _, res := range results {
		item := enrichItem{Activity: res.Value}
		if res.Err != nil {
			item.Error = res.Err.Error()
			resp.Failed++
		}
		resp.Items = append(resp.Items, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

type watchRequest struct {
	Location model.Location `json:"location"`
}

type watchResponse struct {
	WatchID string `json:"watch_id"`
}

// HandleStartWatch kicks off a background location load and returns the
// watch ID for the socket endpoint.
// POST /api/enrich/watch
func (h *EnrichHandler) HandleStartWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Location.PrimaryTerm() == "" {
		writeBadRequest(w, "location is required")
		return
	}

	watch := h.service.StartWatch(req.Location)
	writeJSON(w, http.StatusOK, watchResponse{WatchID: watch.ID})
}

// watchUpdate is the wire form of a progressive snapshot; errors travel
// as strings.
type watchUpdate struct {
	Data     model.LocationContent `json:"data"`
	Progress int                   `json:"progress"`
	Loading  bool                  `json:"loading"`
	Stage    string                `json:"stage"`
	Error    string                `json:"error,omitempty"`
}

func toWatchUpdate(u progressive.Update[model.LocationContent]) watchUpdate {
	wu := watchUpdate{
		Data:     u.Data,
		Progress: u.Progress,
		Loading:  u.Loading,
		Stage:    u.Stage,
	}
	if u.Err != nil {
		wu.Error = u.Err.Error()
	}
	return wu
}

// HandleWatchSocket streams the updates of one watch and closes when the
// load finishes. The watch is released afterwards; IDs are not replayable.
// GET /api/enrich/watch?id=..
func (h *EnrichHandler) HandleWatchSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeBadRequest(w, "id is required")
		return
	}
	watch, ok := h.service.WatchByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown watch"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		slog.Warn("API: watch upgrade failed", "watch", id, "error", err)
		return
	}
	defer conn.Close()
	defer h.service.ReleaseWatch(id)

	for update := range watch.Updates() {
		if err := conn.WriteJSON(toWatchUpdate(update)); err != nil {
			slog.Debug("API: watch client gone", "watch", id, "error", err)
			return
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		slog.Debug("API: watch close failed", "watch", id, "error", err)
	}
}
