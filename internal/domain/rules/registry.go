package rules

import (
	"strings"

	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
)

// Default thresholds, in degrees unless noted.
const (
	DefaultSquatContracted = 100.0
	DefaultSquatExtended   = 160.0
	DefaultSquatDepthCue   = 90.0
	DefaultPostureOffset   = 0.1 // unit image height
	DefaultPressContracted = 100.0
	DefaultPressExtended   = 160.0
	DefaultMinVisibility   = 0.5
)

type entry struct {
	keywords []string
	rule     Rule
}

// Registry resolves exercises to rules. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	entries []entry
	generic Rule
}

// NewRegistry builds a registry holding the squat and press families plus
// any rules added through options.
func NewRegistry(opts ...Option) *Registry {
	b := &builder{
		squat:         SquatRule(DefaultSquatContracted, DefaultSquatExtended, DefaultSquatDepthCue, DefaultPostureOffset),
		press:         PressRule(DefaultPressContracted, DefaultPressExtended),
		minVisibility: DefaultMinVisibility,
	}
	for _, opt := range opts {
		opt(b)
	}

	r := &Registry{generic: GenericRule()}
	r.generic.MinVisibility = b.minVisibility
	for _, e := range append([]entry{
		{keywords: []string{string(FamilySquat)}, rule: b.squat},
		{keywords: []string{string(FamilyPress)}, rule: b.press},
	}, b.extra...) {
		e.rule.MinVisibility = b.minVisibility
		r.entries = append(r.entries, e)
	}
	return r
}

// Resolve returns the rule for ex. An explicit category wins over keywords in
// the name; matching is case-insensitive. When nothing matches, the generic
// rule is returned together with ErrUnrecognizedExercise, which callers treat
// as informational.
func (r *Registry) Resolve(ex model.Exercise) (Rule, error) {
	if cat := strings.ToLower(strings.TrimSpace(ex.Category)); cat != "" {
		for _, e := range r.entries {
			if string(e.rule.Family) == cat {
				return e.rule, nil
			}
		}
	}
	name := strings.ToLower(ex.Name)
	for _, e := range r.entries {
		for _, kw := range e.keywords {
			if kw != "" && strings.Contains(name, kw) {
				return e.rule, nil
			}
		}
	}
	return r.generic, ErrUnrecognizedExercise
}

// Validate checks every registered rule.
func (r *Registry) Validate() error {
	for _, e := range r.entries {
		if err := e.rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Families lists the registered families in resolution order.
func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.rule.Family)
	}
	return out
}

// SquatRule measures the average knee angle and warns when the shoulders sag
// below the hips.
func SquatRule(contracted, extended, depthCue, postureOffset float64) Rule {
	return Rule{
		Name:   "squat",
		Family: FamilySquat,
		Triples: []Triple{
			{A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle},
			{A: pose.RightHip, B: pose.RightKnee, C: pose.RightAnkle},
		},
		ContractedBelow: contracted,
		ExtendedAbove:   extended,
		DepthCue:        depthCue,
		Posture: &SagLimit{
			Upper:  []pose.Index{pose.LeftShoulder, pose.RightShoulder},
			Lower:  []pose.Index{pose.LeftHip, pose.RightHip},
			Offset: postureOffset,
		},
		Cues: Cues{
			Posture:  "Keep your back straight!",
			Contract: "Good! Now squat down",
			Extend:   "Great depth! Now push up!",
			Steady:   "Keep going!",
			Rising:   "Keep going!",
		},
	}
}

// PressRule measures the average elbow angle; the extended phase also needs
// both wrists above both shoulders.
func PressRule(contracted, extended float64) Rule {
	return Rule{
		Name:   "overhead press",
		Family: FamilyPress,
		Triples: []Triple{
			{A: pose.LeftShoulder, B: pose.LeftElbow, C: pose.LeftWrist},
			{A: pose.RightShoulder, B: pose.RightElbow, C: pose.RightWrist},
		},
		ContractedBelow: contracted,
		ExtendedAbove:   extended,
		Gate: &AboveGate{
			Upper: []pose.Index{pose.LeftWrist, pose.RightWrist},
			Lower: []pose.Index{pose.LeftShoulder, pose.RightShoulder},
		},
		Cues: Cues{
			Gate:     "Raise your arms above shoulders",
			Contract: "Arms fully extended! Now lower",
			Extend:   "Good depth! Now press up",
			Steady:   "Keep pressing up!",
			Rising:   "Keep pressing up!",
		},
	}
}

// GenericRule only reports pose presence.
func GenericRule() Rule {
	return Rule{
		Name:   "generic",
		Family: FamilyGeneric,
		Cues: Cues{
			Steady: "Keep moving!",
		},
	}
}
