package nets

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultBatters = 8
	DefaultInnings = 3
	DefaultTimeout = 10 * time.Second
	DefaultSettle  = 5 * time.Second
)

// Gesture generation constants, in screen pixels.
const (
	originMinX     = 120.0
	originRangeX   = 160.0
	originMinY     = 420.0
	originRangeY   = 120.0
	lateralRange   = 260.0
	minLift        = 60.0
	liftRange      = 320.0
	tapChance      = 0.05
	duplicateEvery = 7
)

// Polling constants.
const (
	pollInterval   = 50 * time.Millisecond
	maxTurnsPerOne = 64
	handlePrefix   = "nets-"
	handleIDLength = 8

	// maxLeaderboardRows stays within the server's default limit cap.
	maxLeaderboardRows = 100
)
