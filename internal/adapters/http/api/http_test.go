package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/jci/internal/adapters/http/api"
	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var national = model.Region{Type: model.National, Name: "United States"}

// mockDependencies records the last request arguments and returns canned data.
type mockDependencies struct {
	entries []types.Entry
	rank    types.Entry
	err     error
	ready   bool

	lastRegion model.Region
	lastN      int
	lastJobID  string
	lastFilter repository.Filter
}

func (m *mockDependencies) TopN(_ context.Context, region model.Region, n int) ([]types.Entry, error) {
	m.lastRegion, m.lastN = region, n
	if m.err != nil {
		return nil, m.err
	}
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, region model.Region, jobID string) (types.Entry, error) {
	m.lastRegion, m.lastJobID = region, jobID
	if m.err != nil {
		return types.Entry{}, m.err
	}
	return m.rank, nil
}

func (m *mockDependencies) Jobs(_ context.Context, f repository.Filter) ([]types.Job, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	return []types.Job{{JobID: "J1", JCI: 1.5, RegionType: "National", RegionName: "United States"}}, nil
}

func (m *mockDependencies) Tasks(_ context.Context, f repository.Filter) ([]types.Task, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	return []types.Task{{TaskID: "T1", TCI: 2.5}}, nil
}

func (m *mockDependencies) Regions(context.Context) (types.Catalog, error) {
	if m.err != nil {
		return types.Catalog{}, m.err
	}
	return types.Catalog{
		RegionTypes: []string{"National"},
		Regions:     map[string][]types.Region{"National": {{Name: "United States", Jobs: 2, Tasks: 2}}},
	}, nil
}

func (m *mockDependencies) GetStats(context.Context) (types.Stats, error) {
	if m.err != nil {
		return types.Stats{}, m.err
	}
	return types.Stats{RunID: "run-1", FinishedAt: time.Unix(1_700_000_000, 0).UTC(), Rounds: 20, JobRows: 2}, nil
}

func (m *mockDependencies) NationalRegion() model.Region { return national }

func (m *mockDependencies) Ready(context.Context) bool { return m.ready }

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, 50).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	return body.Code
}

func sampleEntries(n int) []types.Entry {
	out := make([]types.Entry, n)
	for i := range out {
		out[i] = types.Entry{Rank: i + 1, JobID: fmt.Sprintf("J%d", i+1), JCI: float64(100 - i), RegionType: "National", RegionName: "United States"}
	}
	return out
}

func TestServer_Health(t *testing.T) {
	Convey("Given a server without a stored run", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting /healthz", func() {
			w := get(mux, "/healthz")

			Convey("Then it is healthy but not ready", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
				So(w.Body.String(), ShouldContainSubstring, `"ready":false`)
			})
		})

		Convey("When requesting /metrics after a request", func() {
			get(mux, "/healthz")
			w := get(mux, "/metrics")

			Convey("Then the Prometheus exposition includes HTTP counters", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "jci_engine_http_requests_total")
			})
		})

		Convey("When posting to /healthz", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServer_Leaderboard(t *testing.T) {
	Convey("Given a server with ten entries", t, func() {
		deps := &mockDependencies{entries: sampleEntries(10)}
		mux := newMux(deps)

		Convey("When requesting the top three without a region", func() {
			w := get(mux, "/leaderboard?limit=3")

			Convey("Then the national leaderboard is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []types.Entry
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].JobID, ShouldEqual, "J1")
				So(deps.lastRegion, ShouldResemble, national)
				So(deps.lastN, ShouldEqual, 3)
			})
		})

		Convey("When requesting a state leaderboard", func() {
			w := get(mux, "/leaderboard?limit=5&region_type=state&region=Texas")

			Convey("Then the region is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRegion, ShouldResemble, model.Region{Type: model.State, Name: "Texas"})
			})
		})

		Convey("When the limit is missing, invalid or too large", func() {
			Convey("Then the request is rejected", func() {
				So(get(mux, "/leaderboard").Code, ShouldEqual, http.StatusBadRequest)
				So(get(mux, "/leaderboard?limit=abc").Code, ShouldEqual, http.StatusBadRequest)
				So(get(mux, "/leaderboard?limit=0").Code, ShouldEqual, http.StatusBadRequest)

				w := get(mux, "/leaderboard?limit=51")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When a state is named without a region", func() {
			w := get(mux, "/leaderboard?limit=5&region_type=State")

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the region type is unknown", func() {
			w := get(mux, "/leaderboard?limit=5&region_type=county&region=Travis")

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given a server without a stored run", t, func() {
		deps := &mockDependencies{err: repository.ErrNoRun}
		mux := newMux(deps)

		Convey("When requesting the leaderboard", func() {
			w := get(mux, "/leaderboard?limit=3")

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorCode(w), ShouldEqual, "no_data")
			})
		})
	})
}

func TestServer_Rank(t *testing.T) {
	Convey("Given a server with a ranked job", t, func() {
		deps := &mockDependencies{rank: types.Entry{Rank: 4, JobID: "15-1252", JCI: 3.2}}
		mux := newMux(deps)

		Convey("When requesting the rank of a metro job", func() {
			w := get(mux, "/rank/15-1252?region_type=metro&region=Austin")

			Convey("Then the entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.Entry
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Rank, ShouldEqual, 4)
				So(deps.lastJobID, ShouldEqual, "15-1252")
				So(deps.lastRegion, ShouldResemble, model.Region{Type: model.Metro, Name: "Austin"})
			})
		})

		Convey("When the job id is missing or nested", func() {
			Convey("Then the request is rejected", func() {
				So(get(mux, "/rank/").Code, ShouldEqual, http.StatusBadRequest)
				So(get(mux, "/rank/a/b").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given a job that is not ranked", t, func() {
		deps := &mockDependencies{err: fmt.Errorf("job %q: %w", "X", repository.ErrNotFound)}
		mux := newMux(deps)

		Convey("Then the rank is not found", func() {
			w := get(mux, "/rank/X")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})
	})

	Convey("Given an unexpected upstream error", t, func() {
		mux := newMux(&mockDependencies{err: errors.New("disk on fire")})

		Convey("Then the server reports an internal error", func() {
			w := get(mux, "/rank/J1")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "api.get_rank")
		})
	})
}

func TestServer_Lists(t *testing.T) {
	Convey("Given a server with stored rows", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When listing national jobs with paging", func() {
			w := get(mux, "/jobs?region_type=national&job_id=J1&limit=10&offset=5")

			Convey("Then the filter is built from the query", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter, ShouldResemble, repository.Filter{
					RegionType: model.National,
					RegionName: "United States",
					ID:         "J1",
					Limit:      10,
					Offset:     5,
				})
				So(w.Body.String(), ShouldContainSubstring, `"title":null`)
			})
		})

		Convey("When listing tasks without parameters", func() {
			w := get(mux, "/tasks")

			Convey("Then every region is listed up to the maximum limit", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter, ShouldResemble, repository.Filter{Limit: 50})
				So(w.Body.String(), ShouldContainSubstring, `"task_id":"T1"`)
			})
		})

		Convey("When the listing limit is too large or negative", func() {
			Convey("Then the request is rejected", func() {
				So(get(mux, "/jobs?limit=500").Code, ShouldEqual, http.StatusBadRequest)
				So(get(mux, "/tasks?offset=-1").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting the region catalog and stats", func() {
			regions := get(mux, "/regions")
			stats := get(mux, "/stats")

			Convey("Then both are served as JSON", func() {
				So(regions.Code, ShouldEqual, http.StatusOK)
				So(regions.Body.String(), ShouldContainSubstring, `"region_types":["National"]`)
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(strings.HasPrefix(stats.Header().Get("Content-Type"), "application/json"), ShouldBeTrue)
				So(stats.Body.String(), ShouldContainSubstring, `"run_id":"run-1"`)
			})
		})
	})
}
