// Package pose holds the landmark data produced by the external pose
// estimator and the geometry computed on it.
package pose

import (
	"math"
	"time"
)

// Index identifies a landmark in the 33-point body topology.
type Index int

// Body topology indices, in pose-estimator order.
const (
	Nose Index = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the size of a complete frame.
	LandmarkCount int = iota
)

// Point is a 2D position in unit image space (y grows downward).
type Point struct {
	X float64
	Y float64
}

// Landmark is one joint position. Z and Visibility are optional.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Point drops z and visibility.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// usable reports whether the landmark can be fed into geometry.
func (l Landmark) usable(minVisibility float64) bool {
	if math.IsNaN(l.X) || math.IsNaN(l.Y) || math.IsInf(l.X, 0) || math.IsInf(l.Y, 0) {
		return false
	}
	if l.Visibility != nil && *l.Visibility < minVisibility {
		return false
	}
	return true
}

// Frame is the estimator output for one instant. An empty Landmarks slice
// means no pose was detected.
type Frame struct {
	Seq       uint64     `json:"seq"`
	Timestamp time.Time  `json:"ts,omitempty"`
	Landmarks []Landmark `json:"landmarks"`
}

// Detected reports whether the frame carries a pose.
func (f Frame) Detected() bool {
	return len(f.Landmarks) > 0
}

// Point returns the position of idx if present and at least minVisibility
// confident.
func (f Frame) Point(idx Index, minVisibility float64) (Point, bool) {
	if idx < 0 || int(idx) >= len(f.Landmarks) {
		return Point{}, false
	}
	l := f.Landmarks[idx]
	if !l.usable(minVisibility) {
		return Point{}, false
	}
	return l.Point(), true
}

// Visibility returns a pointer to v, for building landmarks.
func Visibility(v float64) *float64 {
	return &v
}
