package config_test

import (
	"errors"
	"testing"

	"github.com/okian/repcoach/internal/config"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.CompletionStore, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.MinVisibility, convey.ShouldEqual, rules.DefaultMinVisibility)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"zero queue":        func(c *config.Config) { c.FrameQueueSize = 0 },
			"negative sessions": func(c *config.Config) { c.MaxSessions = -1 },
			"visibility":        func(c *config.Config) { c.MinVisibility = 1.2 },
			"squat inverted":    func(c *config.Config) { c.SquatContractedDeg = 170 },
			"press inverted":    func(c *config.Config) { c.PressExtendedDeg = 90 },
			"unknown store":     func(c *config.Config) { c.CompletionStore = "redis" },
			"sqlite no path": func(c *config.Config) {
				c.CompletionStore = config.StoreSQLite
				c.SQLitePath = ""
			},
		}

		convey.Convey("Then each is rejected as invalid config", func() {
			for name, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(name, convey.ShouldNotBeEmpty)
			}
		})
	})
}

func TestConfig_RuleOptions(t *testing.T) {
	convey.Convey("Given custom thresholds", t, func() {
		cfg := config.New()
		cfg.SquatContractedDeg = 95
		cfg.PressExtendedDeg = 150
		cfg.MinVisibility = 0.8

		reg := rules.NewRegistry(cfg.RuleOptions()...)

		convey.Convey("Then the registry rules carry them", func() {
			sq, err := reg.Resolve(model.Exercise{ID: "a", Name: "squat", TargetReps: 1})
			convey.So(err, convey.ShouldBeNil)
			convey.So(sq.ContractedBelow, convey.ShouldEqual, 95.0)
			convey.So(sq.MinVisibility, convey.ShouldEqual, 0.8)

			pr, err := reg.Resolve(model.Exercise{ID: "b", Name: "press", TargetReps: 1})
			convey.So(err, convey.ShouldBeNil)
			convey.So(pr.ExtendedAbove, convey.ShouldEqual, 150.0)
			convey.So(reg.Validate(), convey.ShouldBeNil)
		})
	})
}
