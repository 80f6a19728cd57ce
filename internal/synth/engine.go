// Package synth renders notes through meltysynth soundfont synthesizers,
// either live into a pulled sample stream or offline into a buffer.
package synth

import (
	"sync"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/averill/midiplay-go/internal/instrument"
)

const (
	melodicChannel    = 0
	percussionChannel = 9
)

// Engine is the live output graph: one synthesizer per loaded soundfont,
// mixed into the stream the audio backend pulls. It implements the audio
// package's SampleSource.
type Engine struct {
	mu          sync.Mutex
	sampleRate  int
	synths      map[*meltysynth.SoundFont]*meltysynth.Synthesizer
	left, right []float32
	tap         func([]float32)
}

func NewEngine(sampleRate int) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		synths:     make(map[*meltysynth.SoundFont]*meltysynth.Synthesizer),
	}
}

// SetSampleTap installs a callback invoked with each mixed stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func (e *Engine) SetSampleTap(tap func([]float32)) {
	e.mu.Lock()
	e.tap = tap
	e.mu.Unlock()
}

// PlayNote starts the note now and releases it after duration. Gain scales
// the MIDI velocity; a gain of zero or less mutes the note entirely. Notes
// with no usable synthesizer are dropped.
func (e *Engine) PlayNote(inst *instrument.Instrument, pitch, velocity uint8, duration, gain float64) {
	if inst == nil {
		return
	}
	vel := scaledVelocity(velocity, gain)
	if vel == 0 {
		return
	}
	e.mu.Lock()
	synth := e.synthFor(inst.Font)
	if synth == nil {
		e.mu.Unlock()
		return
	}
	ch := int32(melodicChannel)
	if inst.IsPercussion() {
		ch = percussionChannel
	}
	synth.NoteOn(ch, int32(pitch), vel)
	if duration <= 0 {
		synth.NoteOff(ch, int32(pitch))
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	time.AfterFunc(time.Duration(duration*float64(time.Second)), func() {
		e.mu.Lock()
		synth.NoteOff(ch, int32(pitch))
		e.mu.Unlock()
	})
}

// Silence releases every sounding voice on every synthesizer.
func (e *Engine) Silence() {
	e.mu.Lock()
	for _, s := range e.synths {
		s.NoteOffAll(true)
	}
	e.mu.Unlock()
}

// Process mixes all synthesizers into dst (interleaved stereo frames).
func (e *Engine) Process(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	frames := len(dst) / 2

	e.mu.Lock()
	if cap(e.left) < frames {
		e.left = make([]float32, frames)
		e.right = make([]float32, frames)
	}
	left, right := e.left[:frames], e.right[:frames]
	for _, s := range e.synths {
		s.Render(left, right)
		for i := 0; i < frames; i++ {
			dst[i*2] += left[i]
			dst[i*2+1] += right[i]
		}
	}
	tap := e.tap
	e.mu.Unlock()

	if tap != nil {
		tap(dst)
	}
}

// synthFor returns the synthesizer for a soundfont, creating it on first
// use. Caller holds e.mu.
func (e *Engine) synthFor(font *meltysynth.SoundFont) *meltysynth.Synthesizer {
	if s, ok := e.synths[font]; ok {
		return s
	}
	settings := meltysynth.NewSynthesizerSettings(int32(e.sampleRate))
	s, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return nil
	}
	e.synths[font] = s
	return s
}

// scaledVelocity maps velocity through gain. Zero means muted; any audible
// result clamps into the 1..127 MIDI range.
func scaledVelocity(velocity uint8, gain float64) int32 {
	if gain <= 0 {
		return 0
	}
	v := int32(float64(velocity) * gain)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return v
}
