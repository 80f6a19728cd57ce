// Package midiplay turns a parsed MIDI document into precisely timed
// playback and export events. The live path schedules notes against a
// tempo-scalable virtual clock and renders them through cached soundfont
// instruments; the export path replays the same timing math offline.
package midiplay

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	intaudio "github.com/averill/midiplay-go/internal/audio"
	"github.com/averill/midiplay-go/internal/instrument"
	"github.com/averill/midiplay-go/internal/sched"
	"github.com/averill/midiplay-go/internal/score"
	"github.com/averill/midiplay-go/internal/synth"
)

// Document is the structured MIDI source the player consumes.
type Document = score.Document

// Fetcher retrieves raw instrument-definition bytes by resource name.
type Fetcher = instrument.Fetcher

// ErrMalformedSource reports a MIDI source that cannot be played.
var ErrMalformedSource = score.ErrMalformed

var errInvalidTempoScale = errors.New("tempo scale must be positive")

// ParseFile reads and validates a standard MIDI file from disk.
func ParseFile(path string) (*Document, error) {
	mid, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return score.FromSMF(mid)
}

// Parse reads and validates a standard MIDI file from r.
func Parse(r io.Reader) (*Document, error) {
	mid, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return score.FromSMF(mid)
}

// Visualizer is notified when notes fire and fall silent. Calls are
// fire-and-forget; return values and timing precision are not part of the
// contract.
type Visualizer interface {
	AddNote(pitch, velocity uint8)
	RemoveNote(pitch uint8)
}

// PlaybackState is the transport state of a Player.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// PlaybackEvent carries lifecycle events from Watch().
type PlaybackEvent struct {
	Kind EventKind
}

type EventKind int

const (
	// EventPlaybackEnded fires when playback reaches the end of the piece
	// or is stopped.
	EventPlaybackEnded EventKind = iota
)

type Option func(*playerConfig)

type playerConfig struct {
	sampleRate int
	fetcher    Fetcher
	visualizer Visualizer
	sampleTap  func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		sampleRate: 44100,
		fetcher:    instrument.DirFetcher{Dir: "soundfonts"},
	}
}

func WithSampleRate(rate int) Option {
	return func(cfg *playerConfig) { cfg.sampleRate = rate }
}

// WithFetcher sets the source of instrument resources.
func WithFetcher(f Fetcher) Option {
	return func(cfg *playerConfig) { cfg.fetcher = f }
}

func WithVisualizer(v Visualizer) Option {
	return func(cfg *playerConfig) { cfg.visualizer = v }
}

// WithSampleTap installs a callback invoked with each rendered stereo
// buffer, independent of scheduling. The callback runs on the audio thread;
// keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *playerConfig) { cfg.sampleTap = tap }
}

type noteRenderer interface {
	PlayNote(inst *instrument.Instrument, pitch, velocity uint8, duration, gain float64)
	Silence()
}

type audioBackend interface {
	Play()
	Pause()
	Stop() error
}

// Player is the single source of playback-state truth: a state machine over
// Stopped/Playing/Paused composing the scheduler, the clock and the
// instrument cache. Transport operations are mutually exclusive; no two
// transitions interleave.
type Player struct {
	mu         sync.Mutex
	doc        *Document
	cache      *instrument.Cache
	engine     *synth.Engine
	renderer   noteRenderer
	vis        Visualizer
	sampleRate int

	newBackend func(sampleRate int, source intaudio.SampleSource) (audioBackend, error)
	backend    audioBackend

	state    PlaybackState
	scale    int
	position float64
	gen      int
	run      *sched.Run
	clock    *sched.Clock
	done     chan struct{}

	volumeBits atomic.Uint64

	eventChMu sync.Mutex
	eventCh   chan PlaybackEvent
}

// NewPlayer creates a player for doc. The instrument cache persists for the
// life of the player; everything else is recomputed per transport call.
func NewPlayer(doc *Document, opts ...Option) (*Player, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformedSource)
	}
	if doc.TicksPerBeat <= 0 {
		return nil, fmt.Errorf("%w: ticks per beat must be positive", ErrMalformedSource)
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	engine := synth.NewEngine(cfg.sampleRate)
	if cfg.sampleTap != nil {
		engine.SetSampleTap(cfg.sampleTap)
	}
	p := &Player{
		doc:        doc,
		cache:      instrument.NewCache(cfg.fetcher),
		engine:     engine,
		renderer:   engine,
		vis:        cfg.visualizer,
		sampleRate: cfg.sampleRate,
		scale:      100,
		newBackend: func(rate int, source intaudio.SampleSource) (audioBackend, error) {
			return intaudio.NewPlayer(rate, source)
		},
	}
	p.volumeBits.Store(math.Float64bits(1))
	return p, nil
}

// Play starts or resumes playback at `from` seconds of musical time.
// Playing while already playing is a no-op.
func (p *Player) Play(from float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing {
		return nil
	}
	if from < 0 {
		from = 0
	}
	return p.playLocked(from)
}

// Resume continues from the paused (or stopped) position.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing {
		return nil
	}
	return p.playLocked(p.position)
}

// playLocked resolves the document fresh, preloads the instruments the run
// will need, then starts the clock and the scheduler from one (time, scale)
// pair. Caller holds p.mu.
func (p *Player) playLocked(from float64) error {
	res := score.Resolve(p.doc)
	p.cache.PreloadMany(res.InstrumentKeysFrom(from))

	if p.backend == nil {
		b, err := p.newBackend(p.sampleRate, p.engine)
		if err != nil {
			return err
		}
		p.backend = b
	}
	p.backend.Play()

	p.gen++
	gen := p.gen
	rate := float64(p.scale) / 100
	p.run = sched.Start(sched.Config{
		Notes:             res.Notes,
		Assignments:       res.Assignments,
		StartOffset:       from / rate,
		TempoScalePercent: p.scale,
		OnNote:            p.fireNote,
		LoadInstrument: func(key int) {
			go func() { _, _ = p.cache.Load(key) }()
		},
	})
	p.clock = sched.StartClock(from, p.scale, res.TotalSeconds, func() {
		p.finish(gen)
	})
	if p.done == nil {
		p.done = make(chan struct{})
	}
	p.position = from
	p.state = Playing
	return nil
}

// fireNote runs on the scheduler goroutine. It must not take p.mu: a
// transport transition may hold it while waiting for the scheduler to drain.
func (p *Player) fireNote(n score.Note, scaledDuration float64) {
	if inst := p.cache.Handle(n.Instrument); inst != nil {
		p.renderer.PlayNote(inst, n.Pitch, n.Velocity, scaledDuration, p.MasterVolume())
	}
	if p.vis != nil {
		p.vis.AddNote(n.Pitch, n.Velocity)
		pitch := n.Pitch
		time.AfterFunc(time.Duration(scaledDuration*float64(time.Second)), func() {
			p.vis.RemoveNote(pitch)
		})
	}
}

// Pause freezes virtual time and cancels all pending firings. Only valid
// while playing; otherwise a no-op.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing {
		return
	}
	p.position = p.clock.Now()
	p.haltLocked()
	p.state = Paused
}

// Stop cancels pending firings and resets virtual time to zero. Stopped is
// a resting state, freely re-enterable.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	p.haltLocked()
	p.position = 0
	p.state = Stopped
	done := p.done
	p.done = nil
	p.mu.Unlock()

	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
}

// Seek re-anchors playback at t seconds, staying in the current transport
// state: a playing session restarts from t, a paused or stopped one just
// moves its position.
func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t < 0 {
		t = 0
	}
	wasPlaying := p.state == Playing
	if wasPlaying {
		p.haltLocked()
	}
	p.position = t
	if wasPlaying {
		return p.playLocked(t)
	}
	return nil
}

// SetTempoScale changes playback speed (100 = original). Already-scheduled
// firings are never resampled: a playing session is torn down and restarted
// at the captured position under the new scale.
func (p *Player) SetTempoScale(percent int) error {
	if percent <= 0 {
		return errInvalidTempoScale
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := p.position
	wasPlaying := p.state == Playing
	if wasPlaying {
		pos = p.clock.Now()
		p.haltLocked()
	}
	p.scale = percent
	p.position = pos
	if wasPlaying {
		return p.playLocked(pos)
	}
	return nil
}

// haltLocked tears down the clock and scheduler pair. Caller holds p.mu.
func (p *Player) haltLocked() {
	if p.run != nil {
		p.run.Cancel()
		p.run = nil
	}
	if p.clock != nil {
		p.clock.Stop()
		p.clock = nil
	}
	p.renderer.Silence()
	if p.backend != nil {
		p.backend.Pause()
	}
}

// finish is the clock's end-of-piece callback. The generation gate discards
// callbacks from clocks that a seek or tempo change already replaced.
func (p *Player) finish(gen int) {
	p.mu.Lock()
	if p.gen != gen || p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.haltLocked()
	p.position = 0
	p.state = Stopped
	done := p.done
	p.done = nil
	p.mu.Unlock()

	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
}

// Position returns the current musical-time position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing {
		return p.clock.Now()
	}
	return p.position
}

func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) TempoScale() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scale
}

// SetMasterVolume sets the gain applied to subsequently fired notes.
// 1.0 is default, 0 mutes playback and export; values below 0 clamp to 0.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.volumeBits.Store(math.Float64bits(volume))
}

func (p *Player) MasterVolume() float64 {
	return math.Float64frombits(p.volumeBits.Load())
}

// Wait blocks until the current playback ends or is stopped. It returns
// immediately if nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback lifecycle events. The
// channel is buffered (cap 8); only the most recent Watch channel receives
// events. Call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// channel full; drop event
		}
	}
}

// Close stops playback and releases the audio backend.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		return nil
	}
	err := p.backend.Stop()
	p.backend = nil
	return err
}
