package focus

import (
	"time"

	"focuswatch/config"
)

// Tier classifies how fast the user is moving through the library.
type Tier string

const (
	TierFast   Tier = "fast"
	TierMedium Tier = "medium"
	TierSlow   Tier = "slow"
)

// DelayScheduler maps the gap between successive focus changes onto a
// trailer-trigger delay. Fast scrolling gets the longest delay so we never
// start a fetch and a trailer for an item the user is flying past; a
// deliberate dwell gets the shortest.
type DelayScheduler struct {
	cfg config.PollerSettings
}

// NewDelayScheduler creates a scheduler from the poller settings.
func NewDelayScheduler(cfg config.PollerSettings) *DelayScheduler {
	return &DelayScheduler{cfg: cfg}
}

// Classify buckets an inter-arrival gap into a velocity tier. A zero gap
// means there was no previous focus change, which is a deliberate landing,
// not a scroll.
func (s *DelayScheduler) Classify(gap time.Duration) Tier {
	switch {
	case gap <= 0:
		return TierSlow
	case gap < s.cfg.FastThreshold.D():
		return TierFast
	case gap < s.cfg.MediumThreshold.D():
		return TierMedium
	default:
		return TierSlow
	}
}

// DelayFor returns the trailer-trigger delay for an inter-arrival gap.
func (s *DelayScheduler) DelayFor(gap time.Duration) time.Duration {
	switch s.Classify(gap) {
	case TierFast:
		return s.cfg.FastDelay.D()
	case TierMedium:
		return s.cfg.MediumDelay.D()
	default:
		return s.cfg.SlowDelay.D()
	}
}
