package api

import (
	"net/http"
	"strconv"

	"fernweh/pkg/logging"
)

type logResponse struct {
	Count int      `json:"count"`
	Lines []string `json:"lines"`
}

// handleLog returns the captured log tail, oldest first.
// GET /api/log[?tail=..]
func handleLog(w http.ResponseWriter, r *http.Request) {
	lines := logging.GlobalLogRing.Lines()

	if s := r.URL.Query().Get("tail"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid tail")
			return
		}
		if n < len(lines) {
			lines = lines[len(lines)-n:]
		}
	}
	writeJSON(w, http.StatusOK, logResponse{Count: len(lines), Lines: lines})
}
