package sched

import (
	"sync"
	"time"
)

// pollPeriod is the wall-clock sampling period for end-of-piece detection.
const pollPeriod = 100 * time.Millisecond

// Clock tracks virtual (musical) time as a function of wall time and tempo
// scale. There is no resampling: a tempo or position change means stopping
// the clock and starting a fresh one from the new pair.
type Clock struct {
	virtualAnchor float64
	wallAnchor    time.Time
	rate          float64

	stopOnce sync.Once
	stop     chan struct{}
}

// StartClock anchors virtual time at `at` seconds and begins advancing it at
// scalePercent/100 times wall speed. A poll goroutine samples the clock every
// 100 ms; when it reaches total seconds, onEnd is called once.
func StartClock(at float64, scalePercent int, total float64, onEnd func()) *Clock {
	c := &Clock{
		virtualAnchor: at,
		wallAnchor:    time.Now(),
		rate:          float64(scalePercent) / 100,
		stop:          make(chan struct{}),
	}
	go c.poll(total, onEnd)
	return c
}

// Now returns the current virtual time in seconds.
func (c *Clock) Now() float64 {
	return c.virtualAnchor + time.Since(c.wallAnchor).Seconds()*c.rate
}

// Stop halts the poll goroutine. Safe to call repeatedly and from within the
// onEnd callback.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Clock) poll(total float64, onEnd func()) {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.Now() >= total {
				c.Stop()
				if onEnd != nil {
					onEnd()
				}
				return
			}
		}
	}
}
