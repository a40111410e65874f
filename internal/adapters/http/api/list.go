package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/domain/model"
)

// ListHandler serves row listings and the region catalog.
type ListHandler struct {
	deps     ListDependencies
	regions  RegionResolver
	maxLimit int
}

// NewListHandler creates a new listing handler.
func NewListHandler(deps ListDependencies, regions RegionResolver, maxLimit int) *ListHandler {
	return &ListHandler{deps: deps, regions: regions, maxLimit: maxLimit}
}

// filter reads the optional listing parameters. Unlike the leaderboard, a
// listing without region parameters spans every region.
func (h *ListHandler) filter(q url.Values, idParam string) (repository.Filter, error) {
	var f repository.Filter
	if raw := strings.TrimSpace(q.Get(paramRegionType)); raw != "" {
		rt, err := model.ParseRegionType(raw)
		if err != nil {
			return f, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		f.RegionType = rt
		if rt == model.National {
			f.RegionName = h.regions.NationalRegion().Name
		}
	}
	if name := strings.TrimSpace(q.Get(paramRegion)); name != "" {
		f.RegionName = name
	}
	f.ID = strings.TrimSpace(q.Get(idParam))

	var err error
	if f.Limit, err = intParam(q, paramLimit, h.maxLimit); err != nil {
		return f, err
	}
	if f.Limit > h.maxLimit {
		return f, fmt.Errorf("%w: %s", ErrLimitExceeded, paramLimit)
	}
	if f.Offset, err = intParam(q, paramOffset, 0); err != nil {
		return f, err
	}
	return f, nil
}

// HandleJobs handles GET /jobs requests.
func (h *ListHandler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_jobs"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, err := h.filter(r.URL.Query(), paramJobID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	jobs, err := h.deps.Jobs(r.Context(), f)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// HandleTasks handles GET /tasks requests.
func (h *ListHandler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tasks"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	f, err := h.filter(r.URL.Query(), paramTaskID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	tasks, err := h.deps.Tasks(r.Context(), f)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleRegions handles GET /regions requests.
func (h *ListHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_regions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cat, err := h.deps.Regions(r.Context())
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}
