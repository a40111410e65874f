package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/jci/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, region model.Region, jobID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps    RankDependencies
	regions RegionResolver
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, regions RegionResolver) *RankHandler {
	return &RankHandler{deps: deps, regions: regions}
}

// HandleGetRank handles GET /rank/{job_id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /rank/
	jobID := strings.TrimPrefix(r.URL.Path, "/rank/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, "missing job_id"))
		return
	}
	region, err := regionParam(r.URL.Query(), h.regions.NationalRegion())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	entry, err := h.deps.Rank(r.Context(), region, jobID)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
