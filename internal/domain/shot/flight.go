package shot

import "math"

// Ball-flight tuning. Run and boundary thresholds are calibrated against
// these values.
const (
	gravity        = 0.25
	friction       = 0.985
	restitution    = 0.65
	lateBounceDamp = 0.6
	lateBounceFrom = 2
	stepScale      = 0.12
	groundHeight   = 0.2
	stopSpeed      = 0.05
	maxDistance    = 70.0
	maxBounces     = 8
	maxSteps       = 10_000

	// contact point: batter's crease, measured from the centre of the field
	contactX = 0.0
	contactY = 1.2
	contactZ = -7.5
)

// Launch is the ball velocity just after contact.
type Launch struct {
	VX, VY, VZ float64
}

// Trajectory summarizes a simulated flight.
type Trajectory struct {
	// Distance is the planar distance from the centre of the field where the
	// ball stopped being tracked.
	Distance float64
	// Apex is the highest point of the carry above the contact height,
	// measured before the first bounce. Zero for shots hit into the ground.
	Apex        float64
	FinalHeight float64
	Bounces     int
	Steps       int
}

// FlightModel turns a launch into a trajectory summary.
type FlightModel interface {
	Simulate(l Launch) Trajectory
}

// Ballistic integrates the flight step by step with gravity, per-step
// friction and lossy ground bounces.
type Ballistic struct{}

// Simulate runs the flight until the ball slows down, leaves the tracked area
// or has bounced too often.
func (Ballistic) Simulate(l Launch) Trajectory {
	x, y, z := contactX, contactY, contactZ
	vx, vy, vz := l.VX, l.VY, l.VZ
	peak := contactY

	var t Trajectory
	for t.Steps < maxSteps {
		t.Steps++

		x += vx * stepScale
		y += vy * stepScale
		z += vz * stepScale

		vy -= gravity
		vx *= friction
		vy *= friction
		vz *= friction

		if t.Bounces == 0 && y > peak {
			peak = y
		}

		if y <= groundHeight {
			y = groundHeight
			vy = -vy * restitution
			t.Bounces++
			if t.Bounces > lateBounceFrom {
				vx *= lateBounceDamp
				vz *= lateBounceDamp
			}
		}

		speed := math.Sqrt(vx*vx + vy*vy + vz*vz)
		dist := math.Hypot(x, z)
		if speed < stopSpeed || dist > maxDistance || t.Bounces > maxBounces {
			break
		}
	}

	t.Distance = math.Hypot(x, z)
	t.Apex = peak - contactY
	t.FinalHeight = y
	return t
}
