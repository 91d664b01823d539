// Package feedback turns rule measurements into short coaching messages.
package feedback

import (
	"fmt"

	"github.com/okian/repcoach/internal/domain/rules"
)

// Category classifies a message so callers and tests can tell cues apart
// without matching on wording.
type Category string

const (
	CategoryReacquire Category = "reacquire"
	CategoryComplete  Category = "complete"
	CategoryPosture   Category = "posture"
	CategoryRaiseArms Category = "raise_arms"
	CategoryContract  Category = "contract"
	CategoryExtend    Category = "extend"
	CategorySteady    Category = "steady"
)

const (
	reacquireMessage = "Position yourself in frame"
	completeMessage  = "Exercise complete! Great work!"
)

// Feedback is one coaching message.
type Feedback struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Phase is the binary rep phase. The zero value is the starting phase.
type Phase int

const (
	PhaseExtended Phase = iota
	PhaseContracted
)

func (p Phase) String() string {
	if p == PhaseContracted {
		return "contracted"
	}
	return "extended"
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "extended":
		*p = PhaseExtended
	case "contracted":
		*p = PhaseContracted
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// Reacquire is emitted for frames that cannot be evaluated.
func Reacquire() Feedback {
	return Feedback{Category: CategoryReacquire, Message: reacquireMessage}
}

// Generate picks the message for a frame that was measured successfully.
// Priority: complete, posture fault, closed gate, phase coaching, steady.
func Generate(rule rules.Rule, phase Phase, m rules.Measurement, completed bool) Feedback {
	switch {
	case completed:
		return Feedback{Category: CategoryComplete, Message: completeMessage}
	case !rule.Counts():
		return Feedback{Category: CategorySteady, Message: rule.Cues.Steady}
	case !m.PostureOK:
		return Feedback{Category: CategoryPosture, Message: rule.Cues.Posture}
	case !m.GateOpen:
		return Feedback{Category: CategoryRaiseArms, Message: rule.Cues.Gate}
	case rule.DepthReached(m):
		return Feedback{Category: CategoryExtend, Message: rule.Cues.Extend}
	case rule.Extended(m):
		return Feedback{Category: CategoryContract, Message: rule.Cues.Contract}
	case phase == PhaseContracted:
		return Feedback{Category: CategorySteady, Message: rule.Cues.Rising}
	default:
		return Feedback{Category: CategorySteady, Message: rule.Cues.Steady}
	}
}
