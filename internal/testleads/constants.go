package testleads

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultTimeout       = 2 * time.Minute
	PercentageMultiplier = 100
)
