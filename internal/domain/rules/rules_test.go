package rules_test

import (
	"errors"
	"testing"

	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/internal/synth"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given the default registry", t, func() {
		reg := rules.NewRegistry()

		Convey("Then names resolve by keyword, case-insensitively", func() {
			cases := map[string]rules.Family{
				"Wall SQUAT":            rules.FamilySquat,
				"Seated Shoulder Press": rules.FamilyPress,
				"overhead press":        rules.FamilyPress,
			}
			for name, want := range cases {
				r, err := reg.Resolve(model.Exercise{ID: "1", Name: name, TargetReps: 1})
				So(err, ShouldBeNil)
				So(r.Family, ShouldEqual, want)
			}
		})

		Convey("Then an explicit category wins over the name", func() {
			r, err := reg.Resolve(model.Exercise{ID: "1", Name: "Squat to press", Category: "Press", TargetReps: 1})
			So(err, ShouldBeNil)
			So(r.Family, ShouldEqual, rules.FamilyPress)
		})

		Convey("Then unknown exercises fall back to the generic rule", func() {
			r, err := reg.Resolve(model.Exercise{ID: "1", Name: "Hamstring stretch", TargetReps: 1})
			So(errors.Is(err, rules.ErrUnrecognizedExercise), ShouldBeTrue)
			So(r.Family, ShouldEqual, rules.FamilyGeneric)
			So(r.Counts(), ShouldBeFalse)
		})

		Convey("Then every rule is valid and carries the visibility floor", func() {
			So(reg.Validate(), ShouldBeNil)
			So(reg.Families(), ShouldResemble, []rules.Family{rules.FamilySquat, rules.FamilyPress})
			r, _ := reg.Resolve(model.Exercise{Name: "squat"})
			So(r.MinVisibility, ShouldEqual, rules.DefaultMinVisibility)
		})
	})

	Convey("Given a registry with overrides and an extra family", t, func() {
		lunge := rules.Rule{
			Name:            "lunge",
			Family:          "lunge",
			Triples:         []rules.Triple{{A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle}},
			ContractedBelow: 110,
			ExtendedAbove:   150,
		}
		reg := rules.NewRegistry(
			rules.WithSquatThresholds(90, 170, 80),
			rules.WithPressThresholds(0, 150),
			rules.WithPostureOffset(0.2),
			rules.WithMinVisibility(0.7),
			rules.WithRule(lunge, " Lunge "),
		)

		Convey("Then the overrides apply", func() {
			sq, _ := reg.Resolve(model.Exercise{Name: "squat"})
			So(sq.ContractedBelow, ShouldEqual, 90)
			So(sq.ExtendedAbove, ShouldEqual, 170)
			So(sq.DepthCue, ShouldEqual, 80)
			So(sq.Posture.Offset, ShouldEqual, 0.2)
			So(sq.MinVisibility, ShouldEqual, 0.7)

			pr, _ := reg.Resolve(model.Exercise{Name: "press"})
			So(pr.ContractedBelow, ShouldEqual, rules.DefaultPressContracted)
			So(pr.ExtendedAbove, ShouldEqual, 150)
		})

		Convey("Then the extra family resolves by keyword and by category", func() {
			r, err := reg.Resolve(model.Exercise{Name: "Reverse lunge"})
			So(err, ShouldBeNil)
			So(r.Family, ShouldEqual, rules.Family("lunge"))
			So(r.MinVisibility, ShouldEqual, 0.7)

			r, err = reg.Resolve(model.Exercise{Name: "Step", Category: "lunge"})
			So(err, ShouldBeNil)
			So(r.Name, ShouldEqual, "lunge")
		})

		Convey("Then the default posture offset is not shared", func() {
			def, _ := rules.NewRegistry().Resolve(model.Exercise{Name: "squat"})
			So(def.Posture.Offset, ShouldEqual, rules.DefaultPostureOffset)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given rules with broken thresholds", t, func() {
		inverted := rules.SquatRule(160, 100, 90, 0.1)
		blind := rules.PressRule(100, 160)
		blind.MinVisibility = 1.5
		nameless := rules.Rule{Name: "x"}

		Convey("Then validation rejects them", func() {
			So(errors.Is(inverted.Validate(), rules.ErrInvalidRule), ShouldBeTrue)
			So(errors.Is(blind.Validate(), rules.ErrInvalidRule), ShouldBeTrue)
			So(errors.Is(nameless.Validate(), rules.ErrInvalidRule), ShouldBeTrue)
			So(rules.GenericRule().Validate(), ShouldBeNil)
		})
	})
}

func TestMeasure(t *testing.T) {
	Convey("Given the squat and press rules", t, func() {
		reg := rules.NewRegistry()
		squat, _ := reg.Resolve(model.Exercise{Name: "squat"})
		press, _ := reg.Resolve(model.Exercise{Name: "press"})
		g := synth.New()

		Convey("When measuring a squat frame", func() {
			m, err := squat.Measure(g.Squat(120, false))

			Convey("Then both knees are averaged", func() {
				So(err, ShouldBeNil)
				So(m.Angle, ShouldAlmostEqual, 120, 1e-6)
				So(m.PostureOK, ShouldBeTrue)
				So(m.GateOpen, ShouldBeTrue)
			})
		})

		Convey("When the shoulders sag", func() {
			m, err := squat.Measure(g.Squat(120, true))

			Convey("Then posture fails", func() {
				So(err, ShouldBeNil)
				So(m.PostureOK, ShouldBeFalse)
			})
		})

		Convey("When measuring presses", func() {
			up, err1 := press.Measure(g.Press(170, true))
			down, err2 := press.Measure(g.Press(170, false))

			Convey("Then the gate follows wrist height", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(up.GateOpen, ShouldBeTrue)
				So(down.GateOpen, ShouldBeFalse)
				So(press.Extended(up), ShouldBeTrue)
				So(press.Extended(down), ShouldBeFalse)
			})
		})

		Convey("When a required landmark is hidden", func() {
			_, err := press.Measure(synth.Drop(g.Press(170, true), pose.RightWrist))
			_, errNone := squat.Measure(g.Missing())

			Convey("Then the measurement is refused", func() {
				So(errors.Is(err, rules.ErrMissingLandmark), ShouldBeTrue)
				So(errors.Is(errNone, rules.ErrMissingLandmark), ShouldBeTrue)
			})
		})

		Convey("When an unrelated landmark is hidden", func() {
			_, err := squat.Measure(synth.Drop(g.Squat(120, false), pose.Nose, pose.LeftWrist))

			Convey("Then the measurement still succeeds", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
