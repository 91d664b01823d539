package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/repcoach/internal/adapters/repository"
	service "github.com/okian/repcoach/internal/app"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/internal/domain/session"
	"github.com/okian/repcoach/internal/synth"
	"github.com/okian/repcoach/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("sess-%d", n)
	}
}

func started(opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithLogger(logger.Nop()),
		service.WithIDGenerator(sequentialIDs()),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("Then it reports not started and rejects work", func() {
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			_, err := svc.Open(ctx, model.Exercise{ID: "e", Name: "Squat", TargetReps: 1})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)
			err := svc.Stop(ctx)

			Convey("Then it shuts down cleanly", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := started(service.WithStore(store), service.WithMaxSessions(2))
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a squat with target 2 is performed", func() {
			snap, err := svc.Open(ctx, model.Exercise{ID: "ex-1", Name: "Wall Squat", TargetReps: 2, Sets: 3})
			So(err, ShouldBeNil)
			So(snap.ID, ShouldEqual, "sess-1")
			So(snap.Family, ShouldEqual, rules.FamilySquat)

			g := synth.New()
			for _, deg := range []float64{170, 95, 170, 95, 170} {
				dup, err := svc.SubmitFrame(ctx, snap.ID, g.Squat(deg, false))
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}

			Convey("Then the session completes and the mark is persisted", func() {
				So(waitFor(func() bool {
					s, _ := svc.Snapshot(ctx, snap.ID)
					return s.Completed
				}), ShouldBeTrue)

				got, err := svc.Completion(ctx, "ex-1")
				So(err, ShouldBeNil)
				So(got.RepCount, ShouldEqual, 2)
				So(got.Sets, ShouldEqual, 3)
				So(got.SessionID, ShouldEqual, "sess-1")

				list, err := svc.Completions(ctx, 10)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})
		})

		Convey("When a frame is retried", func() {
			snap, err := svc.Open(ctx, model.Exercise{ID: "ex-2", Name: "Squat", TargetReps: 5})
			So(err, ShouldBeNil)
			f := synth.New().Squat(170, false)

			first, err1 := svc.SubmitFrame(ctx, snap.ID, f)
			second, err2 := svc.SubmitFrame(ctx, snap.ID, f)

			Convey("Then the retry is acknowledged as a duplicate", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
			})
		})

		Convey("When an unknown exercise is opened", func() {
			snap, err := svc.Open(ctx, model.Exercise{ID: "ex-3", Name: "Neck stretch", TargetReps: 1})

			Convey("Then it falls back to generic feedback", func() {
				So(err, ShouldBeNil)
				So(snap.Family, ShouldEqual, rules.FamilyGeneric)
			})
		})

		Convey("When the descriptor is invalid", func() {
			_, err := svc.Open(ctx, model.Exercise{ID: "ex-4", Name: "Squat"})

			Convey("Then opening fails", func() {
				So(errors.Is(err, session.ErrInvalidExercise), ShouldBeTrue)
			})
		})

		Convey("When the session limit is reached", func() {
			for i := 0; i < 2; i++ {
				_, err := svc.Open(ctx, model.Exercise{ID: fmt.Sprint(i), Name: "Squat", TargetReps: 1})
				So(err, ShouldBeNil)
			}
			_, err := svc.Open(ctx, model.Exercise{ID: "x", Name: "Squat", TargetReps: 1})

			Convey("Then further sessions are refused", func() {
				So(errors.Is(err, service.ErrTooManySessions), ShouldBeTrue)
				So(svc.GetStats(ctx)["openSessions"], ShouldEqual, 2)
			})
		})

		Convey("When a session is closed one frame before completion", func() {
			snap, err := svc.Open(ctx, model.Exercise{ID: "ex-5", Name: "Squat", TargetReps: 1})
			So(err, ShouldBeNil)
			g := synth.New()
			for _, deg := range []float64{170, 95} {
				_, err := svc.SubmitFrame(ctx, snap.ID, g.Squat(deg, false))
				So(err, ShouldBeNil)
			}
			So(waitFor(func() bool {
				s, _ := svc.Snapshot(ctx, snap.ID)
				return s.LastSeq == 2
			}), ShouldBeTrue)

			closed, err := svc.Close(ctx, snap.ID)
			So(err, ShouldBeNil)

			Convey("Then nothing is persisted and the session is gone", func() {
				So(closed.Closed, ShouldBeTrue)
				So(closed.Phase, ShouldEqual, session.PhaseContracted)

				_, err := svc.SubmitFrame(ctx, snap.ID, g.Squat(170, false))
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				_, err = svc.Close(ctx, snap.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)

				_, err = svc.Completion(ctx, "ex-5")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When looking up an unknown session", func() {
			_, err := svc.Snapshot(ctx, "nope")
			_, err2 := svc.SubmitFrame(ctx, "nope", pose.Frame{Seq: 1})

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(err2, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}
