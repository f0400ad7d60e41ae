package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fernweh/pkg/model"
	"fernweh/pkg/progressive"
)

const (
	// watchTTL evicts watches no client ever attached to.
	watchTTL = 10 * time.Minute
	// watchTimeout bounds the background load itself.
	watchTimeout = 2 * time.Minute
	// watchBuffer holds updates emitted before the client attaches.
	watchBuffer = 16
)

// Watch is the server-side handle of one background location load. The
// client starts a load over HTTP, receives the watch ID, and attaches to
// the socket endpoint to stream the updates.
type Watch struct {
	ID      string
	updates chan progressive.Update[model.LocationContent]
}

func newWatch() *Watch {
	return &Watch{updates: make(chan progressive.Update[model.LocationContent], watchBuffer)}
}

// Updates streams the load's snapshots. The channel closes after the
// final update.
func (w *Watch) Updates() <-chan progressive.Update[model.LocationContent] {
	return w.updates
}

// push hands an update to the channel without ever blocking the load.
func (w *Watch) push(u progressive.Update[model.LocationContent]) {
	select {
	case w.updates <- u:
	default:
		slog.Warn("Enrich: watch buffer full, dropping update", "watch", w.ID, "stage", u.Stage)
	}
}

// StartWatch launches a progressive load in the background and returns
// the watch the client attaches to. The load runs on its own clock, not
// the starting request's.
func (s *Service) StartWatch(loc model.Location) *Watch {
	id := uuid.NewString()
	w := s.watches.Get(id)
	w.ID = id

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
		defer cancel()
		defer close(w.updates)

		if _, err := s.LoadLocation(ctx, loc, w.push); err != nil {
			slog.Warn("Enrich: watched load failed", "watch", id, "location", loc.PrimaryTerm(), "error", err)
		}
	}()
	return w
}

// WatchByID returns the watch registered under id, if any.
func (s *Service) WatchByID(id string) (*Watch, bool) {
	return s.watches.Lookup(id)
}

// ReleaseWatch drops a consumed watch so its ID cannot be replayed.
func (s *Service) ReleaseWatch(id string) {
	s.watches.Delete(id)
}
