// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/internal/domain/types"
	"github.com/okian/jci/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	RankDependencies
	StatsProvider
	ListDependencies

	// NationalRegion is the region used when a request names none.
	NationalRegion() model.Region
	// Ready reports whether a run is available for reads.
	Ready(ctx context.Context) bool
}

// ListDependencies serves row listings and the region catalog.
type ListDependencies interface {
	Jobs(ctx context.Context, f repository.Filter) ([]types.Job, error)
	Tasks(ctx context.Context, f repository.Filter) ([]types.Task, error)
	Regions(ctx context.Context) (types.Catalog, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	listHandler        *ListHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// leaderboard and listing sizes.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		listHandler:        NewListHandler(deps, deps, maxLimit),
		leaderboardHandler: NewLeaderboardHandler(deps, deps, maxLimit),
		rankHandler:        NewRankHandler(deps, deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/regions", MetricsMiddleware(s.listHandler.HandleRegions, "regions"))
	mux.HandleFunc("/jobs", MetricsMiddleware(s.listHandler.HandleJobs, "jobs"))
	mux.HandleFunc("/tasks", MetricsMiddleware(s.listHandler.HandleTasks, "tasks"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
