package score

import (
	"errors"
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrMalformed reports a source document that cannot be converted into a
// playable Document.
var ErrMalformed = errors.New("malformed MIDI source")

type EventType int

const (
	EventTempo EventType = iota
	EventProgramChange
	EventNoteOn
	EventNoteOff
)

// Event is a raw playback-relevant MIDI event at an absolute tick position.
// Only the fields implied by Type are meaningful.
type Event struct {
	Type          EventType
	Tick          int64
	Channel       uint8
	Note          uint8
	Velocity      uint8
	Program       uint8
	MicrosPerBeat int64
}

type Track struct {
	Events []Event
}

// Document is the structured form of a parsed MIDI file: everything the
// playback and export paths need, nothing else.
type Document struct {
	TicksPerBeat int
	Tracks       []Track
}

// FromSMF converts a parsed standard MIDI file into a Document, keeping only
// tempo, program-change and note events. Events within a track stay in tick
// order. Non-metric time formats and non-positive tempo data are rejected.
func FromSMF(mid *smf.SMF) (*Document, error) {
	if mid == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformed)
	}
	ticks, ok := mid.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported time format %v", ErrMalformed, mid.TimeFormat)
	}
	tpb := int(ticks.Resolution())
	if tpb <= 0 {
		return nil, fmt.Errorf("%w: ticks per beat must be positive, got %d", ErrMalformed, tpb)
	}
	doc := &Document{TicksPerBeat: tpb, Tracks: make([]Track, 0, len(mid.Tracks))}
	for ti, tr := range mid.Tracks {
		var events []Event
		var tick int64
		for _, ev := range tr {
			tick += int64(ev.Delta)
			msg := ev.Message
			var (
				ch, key, vel uint8
				prog         uint8
				bpm          float64
			)
			switch {
			case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
				events = append(events, Event{Type: EventNoteOn, Tick: tick, Channel: ch, Note: key, Velocity: vel})
			case msg.GetNoteOff(&ch, &key, &vel), msg.GetNoteOn(&ch, &key, &vel):
				// running-status note-on with velocity 0 is a note-off
				events = append(events, Event{Type: EventNoteOff, Tick: tick, Channel: ch, Note: key})
			case msg.GetProgramChange(&ch, &prog):
				events = append(events, Event{Type: EventProgramChange, Tick: tick, Channel: ch, Program: prog})
			case msg.GetMetaTempo(&bpm):
				if bpm <= 0 {
					return nil, fmt.Errorf("%w: non-positive tempo in track %d at tick %d", ErrMalformed, ti, tick)
				}
				micros := int64(math.Round(60_000_000 / bpm))
				if micros <= 0 {
					return nil, fmt.Errorf("%w: non-positive tempo in track %d at tick %d", ErrMalformed, ti, tick)
				}
				events = append(events, Event{Type: EventTempo, Tick: tick, MicrosPerBeat: micros})
			}
		}
		doc.Tracks = append(doc.Tracks, Track{Events: events})
	}
	return doc, nil
}
