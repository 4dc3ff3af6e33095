package focus

import (
	"testing"
	"time"

	"focuswatch/config"
)

func testPollerSettings() config.PollerSettings {
	return config.PollerSettings{
		FastThreshold:   config.Duration(400 * time.Millisecond),
		MediumThreshold: config.Duration(1500 * time.Millisecond),
		FastDelay:       config.Duration(5 * time.Second),
		MediumDelay:     config.Duration(3 * time.Second),
		SlowDelay:       config.Duration(time.Second),
	}
}

func TestClassifyTiers(t *testing.T) {
	s := NewDelayScheduler(testPollerSettings())

	cases := map[time.Duration]Tier{
		0:                       TierSlow, // no previous focus change
		50 * time.Millisecond:   TierFast,
		399 * time.Millisecond:  TierFast,
		400 * time.Millisecond:  TierMedium,
		1499 * time.Millisecond: TierMedium,
		1500 * time.Millisecond: TierSlow,
		time.Minute:             TierSlow,
	}
	for gap, want := range cases {
		if got := s.Classify(gap); got != want {
			t.Fatalf("Classify(%v) = %s, want %s", gap, got, want)
		}
	}
}

func TestFastScrollingGetsLongestDelay(t *testing.T) {
	s := NewDelayScheduler(testPollerSettings())

	fast := s.DelayFor(50 * time.Millisecond)
	medium := s.DelayFor(time.Second)
	slow := s.DelayFor(5 * time.Second)

	if !(fast > medium && medium > slow) {
		t.Fatalf("expected fast > medium > slow, got %v %v %v", fast, medium, slow)
	}
	if slow != time.Second {
		t.Fatalf("slow delay should come from settings, got %v", slow)
	}
}
