// Package rules maps exercises to the joint geometry and thresholds that
// drive rep detection.
package rules

import (
	"fmt"

	"github.com/okian/repcoach/internal/domain/pose"
	"gonum.org/v1/gonum/stat"
)

// Family tags the kind of rule. The state machine never branches on it; it
// exists for resolution, metrics and logging.
type Family string

const (
	FamilyGeneric Family = "generic"
	FamilySquat   Family = "squat"
	FamilyPress   Family = "press"
)

// Triple is a joint angle measured at B between A and C.
type Triple struct {
	A, B, C pose.Index
}

// AboveGate requires every Upper landmark to sit higher in the image (lower
// y) than every Lower landmark before the extended phase may be entered.
type AboveGate struct {
	Upper []pose.Index
	Lower []pose.Index
}

// SagLimit flags a posture fault when the midpoint of Upper drops below the
// midpoint of Lower by more than Offset (image y grows downward).
type SagLimit struct {
	Upper  []pose.Index
	Lower  []pose.Index
	Offset float64
}

// Cues holds the coaching texts a rule emits.
type Cues struct {
	Posture  string
	Gate     string
	Contract string
	Extend   string
	Steady   string
	Rising   string
}

// Rule is the parameter set for one exercise family. The zero Triples list
// marks a feedback-only rule that never counts.
type Rule struct {
	Name   string
	Family Family

	// Triples are averaged into a single measured angle.
	Triples []Triple

	// ContractedBelow enters the contracted phase; ExtendedAbove enters the
	// extended phase. ContractedBelow must be lower than ExtendedAbove.
	ContractedBelow float64
	ExtendedAbove   float64

	// DepthCue switches coaching to the extend cue once the angle drops
	// under it. Zero means ContractedBelow.
	DepthCue float64

	Gate    *AboveGate
	Posture *SagLimit

	// MinVisibility is the confidence a landmark needs to be used.
	MinVisibility float64

	Cues Cues
}

// Measurement is what a rule extracts from one frame.
type Measurement struct {
	Angle     float64
	GateOpen  bool
	PostureOK bool
}

// Counts reports whether the rule drives the rep counter.
func (r Rule) Counts() bool {
	return len(r.Triples) > 0
}

// Contracted reports whether m satisfies the contracted condition.
func (r Rule) Contracted(m Measurement) bool {
	return r.Counts() && m.Angle < r.ContractedBelow
}

// Extended reports whether m satisfies the extended condition.
func (r Rule) Extended(m Measurement) bool {
	return r.Counts() && m.GateOpen && m.Angle > r.ExtendedAbove
}

// DepthReached reports whether the angle is deep enough for the extend cue.
func (r Rule) DepthReached(m Measurement) bool {
	cue := r.DepthCue
	if cue == 0 {
		cue = r.ContractedBelow
	}
	return m.Angle < cue
}

// Validate checks the thresholds are usable.
func (r Rule) Validate() error {
	if r.Family == "" {
		return fmt.Errorf("rule %q: %w: empty family", r.Name, ErrInvalidRule)
	}
	if !r.Counts() {
		return nil
	}
	if r.ContractedBelow <= 0 || r.ExtendedAbove > 180 || r.ContractedBelow >= r.ExtendedAbove {
		return fmt.Errorf("rule %q: %w: contracted %.1f must be below extended %.1f within (0, 180]",
			r.Name, ErrInvalidRule, r.ContractedBelow, r.ExtendedAbove)
	}
	if r.MinVisibility < 0 || r.MinVisibility > 1 {
		return fmt.Errorf("rule %q: %w: min visibility %.2f outside [0, 1]", r.Name, ErrInvalidRule, r.MinVisibility)
	}
	return nil
}

// Measure evaluates the rule against f. It returns ErrMissingLandmark when
// the frame has no pose or any landmark the rule reads is unusable; nothing
// is computed from partial data.
func (r Rule) Measure(f pose.Frame) (Measurement, error) {
	if !f.Detected() {
		return Measurement{}, fmt.Errorf("frame %d: %w: no pose", f.Seq, ErrMissingLandmark)
	}
	m := Measurement{GateOpen: true, PostureOK: true}
	if !r.Counts() {
		return m, nil
	}

	angles := make([]float64, 0, len(r.Triples))
	for _, t := range r.Triples {
		a, okA := f.Point(t.A, r.MinVisibility)
		b, okB := f.Point(t.B, r.MinVisibility)
		c, okC := f.Point(t.C, r.MinVisibility)
		if !okA || !okB || !okC {
			return Measurement{}, fmt.Errorf("frame %d: %w: triple %d-%d-%d", f.Seq, ErrMissingLandmark, t.A, t.B, t.C)
		}
		angles = append(angles, pose.Angle(a, b, c))
	}
	m.Angle = stat.Mean(angles, nil)

	if r.Gate != nil {
		open, err := r.gateOpen(f)
		if err != nil {
			return Measurement{}, err
		}
		m.GateOpen = open
	}
	if r.Posture != nil {
		ok, err := r.postureOK(f)
		if err != nil {
			return Measurement{}, err
		}
		m.PostureOK = ok
	}
	return m, nil
}

func (r Rule) gateOpen(f pose.Frame) (bool, error) {
	upper, err := r.ys(f, r.Gate.Upper)
	if err != nil {
		return false, err
	}
	lower, err := r.ys(f, r.Gate.Lower)
	if err != nil {
		return false, err
	}
	for _, u := range upper {
		for _, l := range lower {
			if u >= l {
				return false, nil
			}
		}
	}
	return true, nil
}

func (r Rule) postureOK(f pose.Frame) (bool, error) {
	upper, err := r.ys(f, r.Posture.Upper)
	if err != nil {
		return false, err
	}
	lower, err := r.ys(f, r.Posture.Lower)
	if err != nil {
		return false, err
	}
	return stat.Mean(upper, nil) <= stat.Mean(lower, nil)+r.Posture.Offset, nil
}

func (r Rule) ys(f pose.Frame, idx []pose.Index) ([]float64, error) {
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		p, ok := f.Point(i, r.MinVisibility)
		if !ok {
			return nil, fmt.Errorf("frame %d: %w: landmark %d", f.Seq, ErrMissingLandmark, i)
		}
		out = append(out, p.Y)
	}
	return out, nil
}
