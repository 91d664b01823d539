package replay

import (
	"fmt"

	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/synth"
)

// Joint angle sweeps for one repetition, in degrees.
var (
	squatSweep = []float64{170, 150, 130, 110, 95, 85, 95, 110, 130, 150, 170}
	pressSweep = []float64{170, 140, 110, 90, 110, 140, 170}
)

// Synthetic builds a stream of reps repetitions of kind, framed by a
// no-pose frame at the start.
func Synthetic(kind string, reps int) ([]pose.Frame, error) {
	if reps < 1 {
		return nil, fmt.Errorf("reps must be at least 1, got %d", reps)
	}
	g := synth.New()
	frames := []pose.Frame{g.Missing()}
	switch kind {
	case "squat":
		for range reps {
			for _, deg := range squatSweep {
				frames = append(frames, g.Squat(deg, false))
			}
		}
	case "press":
		for range reps {
			for _, deg := range pressSweep {
				frames = append(frames, g.Press(deg, true))
			}
		}
	default:
		return nil, fmt.Errorf("unknown synthetic stream %q", kind)
	}
	return frames, nil
}
