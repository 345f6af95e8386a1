package gesture

import (
	"math"

	"github.com/Jagadish0216/Humanised-Robot/internal/pose"
)

// DefaultMaxElbowAngle is the widest shoulder-elbow-wrist angle, in degrees, that still
// counts as a raised hand.
const DefaultMaxElbowAngle = 160.0

// HandRaised reports whether either hand in frame is raised: wrist above the shoulder
// with the elbow bent below maxElbowAngle.
func HandRaised(frame pose.Frame, maxElbowAngle float64) bool {
	if !frame.HasSubject() {
		return false
	}
	if maxElbowAngle <= 0 {
		maxElbowAngle = DefaultMaxElbowAngle
	}
	lm := frame.Landmarks
	return armRaised(lm[pose.LeftShoulder], lm[pose.LeftElbow], lm[pose.LeftWrist], maxElbowAngle) ||
		armRaised(lm[pose.RightShoulder], lm[pose.RightElbow], lm[pose.RightWrist], maxElbowAngle)
}

func armRaised(shoulder, elbow, wrist pose.Landmark, maxElbowAngle float64) bool {
	return wrist.Y < shoulder.Y && jointAngle(shoulder, elbow, wrist) < maxElbowAngle
}

// jointAngle is the angle at b formed by a-b-c, in degrees. Degenerate segments yield 0.
func jointAngle(a, b, c pose.Landmark) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	mag := math.Hypot(bax, bay) * math.Hypot(bcx, bcy)
	if mag == 0 {
		return 0
	}
	cos := (bax*bcx + bay*bcy) / mag
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
