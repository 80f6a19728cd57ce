package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvancesAtScaledRate(t *testing.T) {
	c := StartClock(10, 200, 1e9, nil)
	defer c.Stop()
	time.Sleep(100 * time.Millisecond)
	elapsed := c.Now() - 10
	assert.Greater(t, elapsed, 0.15, "double-speed clock covers twice the wall time")
	assert.Less(t, elapsed, 1.0)
}

func TestClockStartsFromAnchor(t *testing.T) {
	c := StartClock(42.5, 100, 1e9, nil)
	defer c.Stop()
	assert.InDelta(t, 42.5, c.Now(), 0.05)
}

func TestClockFiresOnEndOnce(t *testing.T) {
	ended := make(chan struct{}, 4)
	c := StartClock(0.95, 100, 1.0, func() { ended <- struct{}{} })
	defer c.Stop()

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end callback never fired")
	}
	time.Sleep(3 * pollPeriod)
	assert.Empty(t, ended, "end callback must fire exactly once")
}

func TestStoppedClockNeverFiresOnEnd(t *testing.T) {
	ended := make(chan struct{}, 1)
	c := StartClock(0, 100, 0.05, func() { ended <- struct{}{} })
	c.Stop()
	c.Stop() // idempotent
	select {
	case <-ended:
		t.Fatal("stopped clock fired its end callback")
	case <-time.After(3 * pollPeriod):
	}
}
