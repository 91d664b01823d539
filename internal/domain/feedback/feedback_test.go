package feedback_test

import (
	"testing"

	"github.com/okian/repcoach/internal/domain/feedback"
	"github.com/okian/repcoach/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateSquat(t *testing.T) {
	Convey("Given the squat rule", t, func() {
		rule := rules.SquatRule(100, 160, 90, 0.1)
		ok := rules.Measurement{GateOpen: true, PostureOK: true}

		Convey("When posture fails at any angle", func() {
			Convey("Then the posture warning wins", func() {
				for _, angle := range []float64{60, 130, 175} {
					m := rules.Measurement{Angle: angle, GateOpen: true, PostureOK: false}
					got := feedback.Generate(rule, feedback.PhaseExtended, m, false)
					So(got.Category, ShouldEqual, feedback.CategoryPosture)
					So(got.Message, ShouldEqual, "Keep your back straight!")
				}
			})
		})

		Convey("When the knees are deep", func() {
			m := ok
			m.Angle = 85
			got := feedback.Generate(rule, feedback.PhaseContracted, m, false)

			Convey("Then the extend cue is given", func() {
				So(got.Category, ShouldEqual, feedback.CategoryExtend)
			})
		})

		Convey("When the knees are between the depth cue and the contracted threshold", func() {
			m := ok
			m.Angle = 95
			got := feedback.Generate(rule, feedback.PhaseContracted, m, false)

			Convey("Then it is steady coaching", func() {
				So(got.Category, ShouldEqual, feedback.CategorySteady)
			})
		})

		Convey("When standing tall", func() {
			m := ok
			m.Angle = 170
			got := feedback.Generate(rule, feedback.PhaseExtended, m, false)

			Convey("Then the contract cue is given", func() {
				So(got.Category, ShouldEqual, feedback.CategoryContract)
				So(got.Message, ShouldEqual, "Good! Now squat down")
			})
		})

		Convey("When the session is complete", func() {
			m := rules.Measurement{Angle: 170, PostureOK: false, GateOpen: true}
			got := feedback.Generate(rule, feedback.PhaseExtended, m, true)

			Convey("Then completion outranks everything", func() {
				So(got.Category, ShouldEqual, feedback.CategoryComplete)
			})
		})
	})
}

func TestGeneratePress(t *testing.T) {
	Convey("Given the press rule", t, func() {
		rule := rules.PressRule(100, 160)

		Convey("When the arms are below the shoulders", func() {
			m := rules.Measurement{Angle: 170, GateOpen: false, PostureOK: true}
			got := feedback.Generate(rule, feedback.PhaseExtended, m, false)

			Convey("Then the user is told to raise them", func() {
				So(got.Category, ShouldEqual, feedback.CategoryRaiseArms)
				So(got.Message, ShouldEqual, "Raise your arms above shoulders")
			})
		})

		Convey("When locked out overhead", func() {
			m := rules.Measurement{Angle: 170, GateOpen: true, PostureOK: true}
			got := feedback.Generate(rule, feedback.PhaseContracted, m, false)

			Convey("Then the contract cue is given", func() {
				So(got.Category, ShouldEqual, feedback.CategoryContract)
			})
		})

		Convey("When mid-press after lowering", func() {
			m := rules.Measurement{Angle: 130, GateOpen: true, PostureOK: true}
			got := feedback.Generate(rule, feedback.PhaseContracted, m, false)

			Convey("Then the rising message is used", func() {
				So(got.Category, ShouldEqual, feedback.CategorySteady)
				So(got.Message, ShouldEqual, "Keep pressing up!")
			})
		})
	})
}

func TestGenerateGenericAndReacquire(t *testing.T) {
	Convey("Given the generic rule", t, func() {
		got := feedback.Generate(rules.GenericRule(), feedback.PhaseExtended, rules.Measurement{GateOpen: true, PostureOK: true}, false)

		Convey("Then only steady feedback is produced", func() {
			So(got.Category, ShouldEqual, feedback.CategorySteady)
			So(got.Message, ShouldEqual, "Keep moving!")
		})

		Convey("Then reacquire is its own category", func() {
			So(feedback.Reacquire().Category, ShouldEqual, feedback.CategoryReacquire)
			So(feedback.Reacquire().Message, ShouldNotBeBlank)
		})
	})
}
