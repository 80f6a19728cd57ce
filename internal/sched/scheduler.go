// Package sched implements the deferred-firing machinery of playback: a
// discrete-event timer queue for note firing and a tempo-scalable virtual
// clock. Neither knows anything about instruments or audio; they call back.
package sched

import (
	"container/heap"
	"sync"
	"time"

	"github.com/averill/midiplay-go/internal/score"
)

// Config describes one scheduling pass. StartOffset and the note starts it
// is compared against are in scaled (playback-speed) seconds.
type Config struct {
	Notes             []score.Note
	Assignments       []score.ProgramAssignment
	StartOffset       float64
	TempoScalePercent int

	// OnNote fires when a note comes due. The scaled duration is passed
	// alongside the resolved note.
	OnNote func(n score.Note, scaledDuration float64)
	// LoadInstrument is called once per program assignment at or after the
	// start offset, at schedule time, so instruments begin loading ahead of
	// the notes that need them. It is not gated by the liveness flag.
	LoadInstrument func(key int)
}

type entry struct {
	due   time.Time
	seq   int
	note  score.Note
	sdur  float64
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq // equal delays fire in source-list order
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Run is one generation of scheduled firings. A single goroutine sleeps on
// one timer until the head of the queue comes due; there is no per-note
// platform timer. Cancel gates every remaining callback.
type Run struct {
	mu   sync.Mutex
	live bool
	q    entryHeap
	stop chan struct{}
}

// Start resolves the config into a timer queue and begins firing. Instrument
// loads for assignments at or after the offset are issued immediately, as an
// unconditional side effect of scheduling.
func Start(cfg Config) *Run {
	rate := float64(cfg.TempoScalePercent) / 100
	if cfg.LoadInstrument != nil {
		for _, a := range cfg.Assignments {
			if a.Seconds/rate >= cfg.StartOffset {
				cfg.LoadInstrument(assignmentKey(a))
			}
		}
	}

	r := &Run{live: true, stop: make(chan struct{})}
	now := time.Now()
	for i, n := range cfg.Notes {
		scaledStart := n.Start / rate
		if scaledStart < cfg.StartOffset {
			continue
		}
		delay := scaledStart - cfg.StartOffset
		if delay < 0 {
			delay = 0
		}
		heap.Push(&r.q, &entry{
			due:  now.Add(time.Duration(delay * float64(time.Second))),
			seq:  i,
			note: n,
			sdur: n.Duration / rate,
		})
	}
	go r.loop(cfg.OnNote)
	return r
}

func (r *Run) loop(onNote func(score.Note, float64)) {
	for {
		r.mu.Lock()
		if !r.live || r.q.Len() == 0 {
			r.mu.Unlock()
			return
		}
		head := r.q[0]
		if wait := time.Until(head.due); wait > 0 {
			r.mu.Unlock()
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-r.stop:
				t.Stop()
				return
			}
			continue
		}
		e := heap.Pop(&r.q).(*entry)
		// Fired under the lock: once Cancel has returned, no further
		// callback can run for this generation.
		if onNote != nil {
			onNote(e.note, e.sdur)
		}
		r.mu.Unlock()
	}
}

// Cancel clears all pending firings. It blocks until any callback in flight
// has returned, so afterwards the due-callback is guaranteed silent.
func (r *Run) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live {
		return
	}
	r.live = false
	r.q = nil
	close(r.stop)
}

// Pending reports the number of firings still queued.
func (r *Run) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.q.Len()
}

func assignmentKey(a score.ProgramAssignment) int {
	if a.Channel == score.PercussionChannel {
		return score.PercussionKey
	}
	return int(a.Program)
}
