package score

import "sort"

const (
	// PercussionChannel is the MIDI channel reserved for the drum kit.
	PercussionChannel = 9
	// PercussionKey is the instrument key substituted for any program on the
	// percussion channel. It is distinct from every GM program (0-127).
	PercussionKey = 128
)

// Note is a paired note-on/note-off in the seconds domain.
type Note struct {
	Pitch      uint8
	Velocity   uint8
	Channel    uint8
	Track      int
	Start      float64
	Duration   float64
	Instrument int
}

// ProgramAssignment records a program-change event with its position in
// seconds, used to decide which instruments a scheduling pass must load.
type ProgramAssignment struct {
	Channel uint8
	Program uint8
	Tick    int64
	Seconds float64
}

// Resolution is the derived state of one scheduling or export call. It is
// recomputed from the Document every time and never cached.
type Resolution struct {
	Notes        []Note
	Programs     [16]uint8
	Assignments  []ProgramAssignment
	TotalSeconds float64
}

type pendingKey struct {
	pitch   uint8
	channel uint8
}

type pendingOn struct {
	start      float64
	velocity   uint8
	track      int
	instrument int
}

// Resolve runs all tracks' events through the tempo map and pairs note-ons
// with note-offs. A second note-on for the same (pitch, channel) before its
// note-off overwrites the pending entry; a note-on left unterminated at end
// of track yields no Note. Durations are not clamped: a note-off that lands
// before its note-on after rounding produces a negative duration, which the
// scheduler fires immediately.
func Resolve(doc *Document) *Resolution {
	changes := BuildTempoMap(doc)
	res := &Resolution{}

	type located struct {
		Event
		track int
	}
	var events []located
	for ti, tr := range doc.Tracks {
		for _, ev := range tr.Events {
			events = append(events, located{Event: ev, track: ti})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})

	pending := make(map[pendingKey]pendingOn)
	for _, ev := range events {
		switch ev.Type {
		case EventProgramChange:
			res.Programs[ev.Channel&0x0f] = ev.Program
			res.Assignments = append(res.Assignments, ProgramAssignment{
				Channel: ev.Channel,
				Program: ev.Program,
				Tick:    ev.Tick,
				Seconds: TicksToSeconds(ev.Tick, doc.TicksPerBeat, changes),
			})
		case EventNoteOn:
			pending[pendingKey{ev.Note, ev.Channel}] = pendingOn{
				start:      TicksToSeconds(ev.Tick, doc.TicksPerBeat, changes),
				velocity:   ev.Velocity,
				track:      ev.track,
				instrument: instrumentKey(ev.Channel, res.Programs),
			}
		case EventNoteOff:
			k := pendingKey{ev.Note, ev.Channel}
			on, ok := pending[k]
			if !ok {
				break
			}
			delete(pending, k)
			off := TicksToSeconds(ev.Tick, doc.TicksPerBeat, changes)
			res.Notes = append(res.Notes, Note{
				Pitch:      ev.Note,
				Velocity:   on.velocity,
				Channel:    ev.Channel,
				Track:      on.track,
				Start:      on.start,
				Duration:   off - on.start,
				Instrument: on.instrument,
			})
		}
	}

	sort.SliceStable(res.Notes, func(i, j int) bool {
		return res.Notes[i].Start < res.Notes[j].Start
	})
	for _, n := range res.Notes {
		if end := n.Start + n.Duration; end > res.TotalSeconds {
			res.TotalSeconds = end
		}
	}
	return res
}

// InstrumentKeysFrom returns the distinct instrument keys a playback starting
// at cutoff seconds will need: keys assigned by program changes at or after
// the cutoff, plus the resolved keys of notes starting at or after it.
func (r *Resolution) InstrumentKeysFrom(cutoff float64) []int {
	seen := make(map[int]bool)
	var keys []int
	add := func(k int) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, a := range r.Assignments {
		if a.Seconds >= cutoff {
			add(instrumentKeyFor(a.Channel, a.Program))
		}
	}
	for _, n := range r.Notes {
		if n.Start >= cutoff {
			add(n.Instrument)
		}
	}
	sort.Ints(keys)
	return keys
}

func instrumentKey(channel uint8, programs [16]uint8) int {
	return instrumentKeyFor(channel, programs[channel&0x0f])
}

// instrumentKeyFor maps a channel/program pair to an instrument key. The
// percussion channel always resolves to PercussionKey, whatever the raw
// program says.
func instrumentKeyFor(channel uint8, program uint8) int {
	if channel == PercussionChannel {
		return PercussionKey
	}
	return int(program)
}
