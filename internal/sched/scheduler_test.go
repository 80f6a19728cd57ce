package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/midiplay-go/internal/score"
)

type firingLog struct {
	mu      sync.Mutex
	pitches []uint8
	times   []time.Time
}

func (l *firingLog) onNote(n score.Note, _ float64) {
	l.mu.Lock()
	l.pitches = append(l.pitches, n.Pitch)
	l.times = append(l.times, time.Now())
	l.mu.Unlock()
}

func (l *firingLog) snapshot() []uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint8(nil), l.pitches...)
}

func notesAt(starts ...float64) []score.Note {
	notes := make([]score.Note, len(starts))
	for i, s := range starts {
		notes[i] = score.Note{Pitch: uint8(60 + i), Start: s, Duration: 0.1}
	}
	return notes
}

func TestStartSkipsNotesBeforeOffset(t *testing.T) {
	log := &firingLog{}
	r := Start(Config{
		Notes:             notesAt(2, 6, 9),
		StartOffset:       5,
		TempoScalePercent: 100,
		OnNote:            log.onNote,
	})
	defer r.Cancel()
	assert.Equal(t, 2, r.Pending(), "only the notes at 6 and 9 are scheduled")
}

func TestPastDueNotesFireImmediately(t *testing.T) {
	log := &firingLog{}
	r := Start(Config{
		Notes:             notesAt(0.999, 1.0), // zero and negative delay at offset 1
		StartOffset:       1,
		TempoScalePercent: 100,
		OnNote:            log.onNote,
	})
	defer r.Cancel()
	deadline := time.Now().Add(time.Second)
	for len(log.snapshot()) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.NotEmpty(t, log.snapshot())
}

func TestEqualDelaysFireInSourceOrder(t *testing.T) {
	log := &firingLog{}
	notes := []score.Note{
		{Pitch: 1, Start: 0.02},
		{Pitch: 2, Start: 0.02},
		{Pitch: 3, Start: 0.02},
	}
	r := Start(Config{
		Notes:             notes,
		TempoScalePercent: 100,
		OnNote:            log.onNote,
	})
	defer r.Cancel()
	deadline := time.Now().Add(time.Second)
	for len(log.snapshot()) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, []uint8{1, 2, 3}, log.snapshot())
}

func TestCancelSuppressesDueCallbacks(t *testing.T) {
	log := &firingLog{}
	r := Start(Config{
		Notes:             notesAt(0.05, 0.06, 0.07),
		TempoScalePercent: 100,
		OnNote:            log.onNote,
	})
	r.Cancel()
	fired := len(log.snapshot())
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, fired, len(log.snapshot()), "no callback may fire after Cancel returns")
	assert.Equal(t, 0, r.Pending())
}

func TestCancelIsIdempotent(t *testing.T) {
	r := Start(Config{Notes: notesAt(1), TempoScalePercent: 100})
	r.Cancel()
	r.Cancel()
}

func TestTempoScaleShortensDelays(t *testing.T) {
	measure := func(scale int) time.Duration {
		log := &firingLog{}
		start := time.Now()
		r := Start(Config{
			Notes:             notesAt(0.4),
			TempoScalePercent: scale,
			OnNote:            log.onNote,
		})
		defer r.Cancel()
		deadline := time.Now().Add(2 * time.Second)
		for len(log.snapshot()) == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		log.mu.Lock()
		defer log.mu.Unlock()
		require.Len(t, log.times, 1)
		return log.times[0].Sub(start)
	}

	full := measure(100)
	double := measure(200)
	assert.Greater(t, full, 300*time.Millisecond)
	assert.Less(t, double, 300*time.Millisecond, "tempo scale 200 halves the firing delay")
}

func TestInstrumentLoadsIssuedAtScheduleTime(t *testing.T) {
	var mu sync.Mutex
	var loaded []int
	r := Start(Config{
		Assignments: []score.ProgramAssignment{
			{Channel: 0, Program: 5, Seconds: 0},
			{Channel: 0, Program: 30, Seconds: 8},
			{Channel: 9, Program: 12, Seconds: 8},
		},
		StartOffset:       5,
		TempoScalePercent: 100,
		LoadInstrument: func(key int) {
			mu.Lock()
			loaded = append(loaded, key)
			mu.Unlock()
		},
	})
	defer r.Cancel()
	mu.Lock()
	defer mu.Unlock()
	// the assignment before the offset is skipped; channel 9 loads the kit
	assert.Equal(t, []int{30, score.PercussionKey}, loaded)
}
