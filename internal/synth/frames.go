// Package synth builds geometrically exact landmark frames for a requested
// joint angle. It backs scenario tests and the replay tool's synthetic mode.
package synth

import (
	"math"

	"github.com/okian/repcoach/internal/domain/pose"
)

const (
	segment    = 0.12 // limb segment length, unit image
	visibility = 0.95
)

// Side offsets: left landmarks sit at smaller x in image space.
const (
	left  = -1.0
	right = 1.0
)

// Generator numbers frames as it builds them.
type Generator struct {
	seq uint64
}

// New returns a generator starting at sequence 1.
func New() *Generator {
	return &Generator{}
}

func (g *Generator) next(lms []pose.Landmark) pose.Frame {
	g.seq++
	return pose.Frame{Seq: g.seq, Landmarks: lms}
}

// Missing returns a frame with no pose.
func (g *Generator) Missing() pose.Frame {
	return g.next(nil)
}

// Squat returns a standing-camera frame whose knees both bend at kneeDeg.
// When sagging, the shoulders drop well below the hips.
func (g *Generator) Squat(kneeDeg float64, sagging bool) pose.Frame {
	lms := baseline()
	for _, side := range []float64{left, right} {
		hip := pose.Point{X: 0.5 + side*0.06, Y: 0.5}
		knee := pose.Point{X: hip.X, Y: hip.Y + 0.15}
		ankle := place(knee, hip, kneeDeg, 0.15, side)
		shoulder := pose.Point{X: hip.X, Y: 0.25}
		if sagging {
			shoulder.Y = hip.Y + 0.2
		}
		set(lms, pick(side, pose.LeftHip, pose.RightHip), hip)
		set(lms, pick(side, pose.LeftKnee, pose.RightKnee), knee)
		set(lms, pick(side, pose.LeftAnkle, pose.RightAnkle), ankle)
		set(lms, pick(side, pose.LeftShoulder, pose.RightShoulder), shoulder)
	}
	return g.next(lms)
}

// Press returns a frame whose elbows both bend at elbowDeg. Raised arms put
// the upper arm up and out so every wrist is above both shoulders; lowered
// arms hang the upper arm down so every wrist stays below them.
func (g *Generator) Press(elbowDeg float64, raised bool) pose.Frame {
	lms := baseline()
	for _, side := range []float64{left, right} {
		shoulder := pose.Point{X: 0.5 + side*0.1, Y: 0.4}
		var elbow pose.Point
		if raised {
			c := math.Sqrt2 / 2
			elbow = pose.Point{X: shoulder.X + side*segment*c, Y: shoulder.Y - segment*c}
		} else {
			elbow = pose.Point{X: shoulder.X + side*0.02, Y: shoulder.Y + 0.15}
		}
		wrist := place(elbow, shoulder, elbowDeg, segment, side)
		set(lms, pick(side, pose.LeftShoulder, pose.RightShoulder), shoulder)
		set(lms, pick(side, pose.LeftElbow, pose.RightElbow), elbow)
		set(lms, pick(side, pose.LeftWrist, pose.RightWrist), wrist)
	}
	return g.next(lms)
}

// Drop returns f with idx marked as barely visible.
func Drop(f pose.Frame, idx ...pose.Index) pose.Frame {
	lms := append([]pose.Landmark(nil), f.Landmarks...)
	for _, i := range idx {
		lms[i].Visibility = pose.Visibility(0.05)
	}
	f.Landmarks = lms
	return f
}

// place returns the point at distance length from vertex such that the angle
// from->vertex->result equals deg. The rotation direction follows side so the
// limb bends the natural way on both halves of the body.
func place(vertex, from pose.Point, deg, length, side float64) pose.Point {
	ux, uy := from.X-vertex.X, from.Y-vertex.Y
	n := math.Hypot(ux, uy)
	ux, uy = ux/n, uy/n
	r := side * deg * math.Pi / 180
	vx := ux*math.Cos(r) - uy*math.Sin(r)
	vy := ux*math.Sin(r) + uy*math.Cos(r)
	return pose.Point{X: vertex.X + length*vx, Y: vertex.Y + length*vy}
}

func baseline() []pose.Landmark {
	lms := make([]pose.Landmark, pose.LandmarkCount)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: pose.Visibility(visibility)}
	}
	return lms
}

func set(lms []pose.Landmark, idx pose.Index, p pose.Point) {
	lms[idx] = pose.Landmark{X: p.X, Y: p.Y, Visibility: pose.Visibility(visibility)}
}

func pick(side float64, l, r pose.Index) pose.Index {
	if side < 0 {
		return l
	}
	return r
}
