package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/repcoach/internal/adapters/http/api"
	"github.com/okian/repcoach/internal/adapters/mq/queue"
	"github.com/okian/repcoach/internal/adapters/repository"
	service "github.com/okian/repcoach/internal/app"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps records calls and returns canned results.
type fakeDeps struct {
	opened      []model.Exercise
	frames      []pose.Frame
	submitErr   error
	duplicate   bool
	openErr     error
	completions []repository.Completion
}

func (f *fakeDeps) Open(_ context.Context, ex model.Exercise) (session.Snapshot, error) {
	if f.openErr != nil {
		return session.Snapshot{}, f.openErr
	}
	f.opened = append(f.opened, ex)
	return session.Snapshot{ID: "sess-1", ExerciseID: ex.ID, TargetReps: ex.TargetReps}, nil
}

func (f *fakeDeps) Snapshot(_ context.Context, id string) (session.Snapshot, error) {
	if id != "sess-1" {
		return session.Snapshot{}, service.ErrSessionNotFound
	}
	return session.Snapshot{ID: id, RepCount: 2, TargetReps: 5}, nil
}

func (f *fakeDeps) Close(_ context.Context, id string) (session.Snapshot, error) {
	if id != "sess-1" {
		return session.Snapshot{}, service.ErrSessionNotFound
	}
	return session.Snapshot{ID: id, Closed: true}, nil
}

func (f *fakeDeps) SubmitFrame(_ context.Context, id string, fr pose.Frame) (bool, error) {
	if id != "sess-1" {
		return false, service.ErrSessionNotFound
	}
	if f.submitErr != nil {
		return false, fmt.Errorf("enqueue frame %d: %w", fr.Seq, f.submitErr)
	}
	f.frames = append(f.frames, fr)
	return f.duplicate, nil
}

func (f *fakeDeps) Completions(_ context.Context, limit int) ([]repository.Completion, error) {
	if limit < len(f.completions) {
		return f.completions[:limit], nil
	}
	return f.completions, nil
}

func (f *fakeDeps) Completion(_ context.Context, id string) (repository.Completion, error) {
	for _, c := range f.completions {
		if c.ExerciseID == id {
			return c, nil
		}
	}
	return repository.Completion{}, repository.ErrNotFound
}

func (f *fakeDeps) GetStats(context.Context) map[string]any {
	return map[string]any{"started": true, "openSessions": 1}
}

func newMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func frameBody(seq uint64, landmarks int) string {
	f := pose.Frame{Seq: seq, Landmarks: make([]pose.Landmark, landmarks)}
	b, _ := json.Marshal(f)
	return string(b)
}

func TestSessionsRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &fakeDeps{}
		mux := newMux(deps)

		Convey("When a session is opened", func() {
			rec := do(mux, http.MethodPost, "/sessions", `{"id":"ex-1","name":"Wall Squat","target_reps":10,"sets":3}`)

			Convey("Then the descriptor reaches the service", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(deps.opened, ShouldHaveLength, 1)
				So(deps.opened[0].Sets, ShouldEqual, 3)

				var snap session.Snapshot
				So(json.Unmarshal(rec.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.ID, ShouldEqual, "sess-1")
			})
		})

		Convey("When the descriptor is invalid", func() {
			bad := do(mux, http.MethodPost, "/sessions", `{"id":"ex-1","name":"Squat"}`)
			garbage := do(mux, http.MethodPost, "/sessions", `{`)

			Convey("Then it is rejected", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(garbage.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.opened, ShouldBeEmpty)
			})
		})

		Convey("When too many sessions are open", func() {
			deps.openErr = service.ErrTooManySessions
			rec := do(mux, http.MethodPost, "/sessions", `{"id":"ex-1","name":"Squat","target_reps":1}`)

			Convey("Then the client is told to back off", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When reading and closing sessions", func() {
			got := do(mux, http.MethodGet, "/sessions/sess-1", "")
			missing := do(mux, http.MethodGet, "/sessions/nope", "")
			closed := do(mux, http.MethodDelete, "/sessions/sess-1", "")
			closedMissing := do(mux, http.MethodDelete, "/sessions/nope", "")

			Convey("Then statuses follow the session lookup", func() {
				So(got.Code, ShouldEqual, http.StatusOK)
				So(got.Body.String(), ShouldContainSubstring, `"rep_count":2`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(closed.Code, ShouldEqual, http.StatusOK)
				So(closed.Body.String(), ShouldContainSubstring, `"closed":true`)
				So(closedMissing.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a route is called with the wrong method", func() {
			rec := do(mux, http.MethodPut, "/sessions/sess-1", "")

			Convey("Then the mux refuses it", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestFramesRoute(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &fakeDeps{}
		mux := newMux(deps)

		Convey("When a full frame is posted", func() {
			rec := do(mux, http.MethodPost, "/sessions/sess-1/frames", frameBody(4, pose.LandmarkCount))

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.frames, ShouldHaveLength, 1)
				So(deps.frames[0].Seq, ShouldEqual, 4)
			})
		})

		Convey("When an empty frame is posted", func() {
			rec := do(mux, http.MethodPost, "/sessions/sess-1/frames", `{"seq":5,"landmarks":[]}`)

			Convey("Then it is accepted as no pose", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.frames[0].Detected(), ShouldBeFalse)
			})
		})

		Convey("When a frame has the wrong topology", func() {
			rec := do(mux, http.MethodPost, "/sessions/sess-1/frames", frameBody(6, 17))

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.frames, ShouldBeEmpty)
			})
		})

		Convey("When the frame is a retry", func() {
			deps.duplicate = true
			rec := do(mux, http.MethodPost, "/sessions/sess-1/frames", frameBody(4, pose.LandmarkCount))

			Convey("Then the duplicate is acknowledged", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the session queue is full", func() {
			deps.submitErr = queue.ErrFull
			rec := do(mux, http.MethodPost, "/sessions/sess-1/frames", frameBody(4, pose.LandmarkCount))

			Convey("Then backpressure is reported", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(rec.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})

		Convey("When the session does not exist", func() {
			rec := do(mux, http.MethodPost, "/sessions/nope/frames", frameBody(1, pose.LandmarkCount))

			Convey("Then it is not found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestCompletionsAndOps(t *testing.T) {
	Convey("Given the API server with two completions", t, func() {
		at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		deps := &fakeDeps{completions: []repository.Completion{
			{ExerciseID: "ex-2", RepCount: 5, TargetReps: 5, CompletedAt: at.Add(time.Minute)},
			{ExerciseID: "ex-1", RepCount: 3, TargetReps: 3, CompletedAt: at},
		}}
		mux := newMux(deps)

		Convey("When listing with a limit", func() {
			rec := do(mux, http.MethodGet, "/completions?limit=1", "")

			Convey("Then only that many are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Items []repository.Completion `json:"items"`
					Count int                     `json:"count"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Count, ShouldEqual, 1)
				So(body.Items[0].ExerciseID, ShouldEqual, "ex-2")
			})
		})

		Convey("When the limit is invalid", func() {
			rec := do(mux, http.MethodGet, "/completions?limit=-3", "")

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching a single completion", func() {
			found := do(mux, http.MethodGet, "/completions/ex-1", "")
			missing := do(mux, http.MethodGet, "/completions/ex-9", "")

			Convey("Then lookups resolve by exercise id", func() {
				So(found.Code, ShouldEqual, http.StatusOK)
				So(found.Body.String(), ShouldContainSubstring, `"rep_count":3`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When probing health, stats and metrics", func() {
			health := do(mux, http.MethodGet, "/healthz", "")
			stats := do(mux, http.MethodGet, "/stats", "")
			metricsRec := do(mux, http.MethodGet, "/metrics", "")

			Convey("Then each endpoint answers", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, `"ok"`)
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"openSessions":1`)
				So(metricsRec.Code, ShouldEqual, http.StatusOK)
				So(metricsRec.Body.String(), ShouldContainSubstring, "repcoach_")
			})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := fmt.Errorf("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause are reachable", func() {
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
		})
	})
}
