package api

import (
	"net/http"
	"strconv"

	"fernweh/pkg/imagery"
)

// ImagesHandler serves hierarchy-walk image resolution.
type ImagesHandler struct {
	resolver *imagery.Resolver
}

func NewImagesHandler(resolver *imagery.Resolver) *ImagesHandler {
	return &ImagesHandler{resolver: resolver}
}

type imagesResponse struct {
	Query  imagery.Hierarchy `json:"query"`
	Levels []imagery.Result  `json:"levels"`
	Images []string          `json:"images"`
}

// HandleResolve runs the cascade for the hierarchy given in the query
// string. At least one level must be set.
func (h *ImagesHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hier := imagery.Hierarchy{
		Local:       q.Get("local"),
		District:    q.Get("district"),
		County:      q.Get("county"),
		Regional:    q.Get("regional"),
		National:    q.Get("national"),
		Continental: q.Get("continental"),
	}
	if hier.IsZero() {
		writeBadRequest(w, "at least one hierarchy level is required")
		return
	}

	target := imagery.DefaultTargetCount
	if s := q.Get("target"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeBadRequest(w, "invalid target")
			return
		}
		target = n
	}

	levels := h.resolver.Resolve(r.Context(), hier, target)
	writeJSON(w, http.StatusOK, imagesResponse{
		Query:  hier,
		Levels: levels,
		Images: imagery.Flatten(levels, target),
	})
}
