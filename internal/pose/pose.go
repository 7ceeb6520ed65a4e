// Package pose holds body keypoint types and the joint angle calculation.
package pose

import "math"

// Joint role indices following the MediaPipe pose landmark convention.
const (
	LeftShoulder = 11
	LeftElbow    = 13
	LeftWrist    = 15
	LeftHip      = 23
	LeftKnee     = 25
	LeftAnkle    = 27
)

// Point is a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoints maps a joint role index to its detected position. A role absent
// from the map was not detected in that frame.
type Keypoints map[int]Point

// Roles names the three joints that form an angle, with Vertex in the middle.
type Roles struct {
	Proximal int
	Vertex   int
	Distal   int
}

// Triple returns the points for roles and whether all three are present.
func (k Keypoints) Triple(r Roles) (a, b, c Point, ok bool) {
	if a, ok = k[r.Proximal]; !ok {
		return
	}
	if b, ok = k[r.Vertex]; !ok {
		return
	}
	c, ok = k[r.Distal]
	return
}

// Angle returns the angle at vertex b formed by the segments b->a and b->c,
// in degrees within [0, 180].
//
// The result is symmetric in a and c: swapping the outer joints yields the
// same angle, so only the vertex position in the argument list matters.
func Angle(a, b, c Point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180.0 {
		angle = 360.0 - angle
	}

	return angle
}
