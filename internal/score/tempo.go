package score

import "sort"

// DefaultMicrosPerBeat is the tempo assumed before the first tempo change
// (120 BPM).
const DefaultMicrosPerBeat = 500000

// TempoChange is one entry of a tempo map.
type TempoChange struct {
	Tick          int64
	MicrosPerBeat int64
}

// BuildTempoMap flattens the tempo events of all tracks into a single list
// sorted ascending by tick. The sort is stable: changes at the same tick keep
// their encounter order, and no de-duplication is performed.
func BuildTempoMap(doc *Document) []TempoChange {
	var changes []TempoChange
	for _, tr := range doc.Tracks {
		for _, ev := range tr.Events {
			if ev.Type == EventTempo {
				changes = append(changes, TempoChange{Tick: ev.Tick, MicrosPerBeat: ev.MicrosPerBeat})
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Tick < changes[j].Tick
	})
	return changes
}

// TicksToSeconds converts an absolute tick position to seconds under the
// given tempo map. Changes at a tick strictly less than the target contribute
// a segment at the tempo in force before them; the remainder runs at the last
// tempo seen. Monotonic non-decreasing in ticks for a fixed map.
func TicksToSeconds(ticks int64, ticksPerBeat int, changes []TempoChange) float64 {
	seconds := 0.0
	currentTick := int64(0)
	currentTempo := int64(DefaultMicrosPerBeat)
	for _, c := range changes {
		if c.Tick >= ticks {
			break
		}
		seconds += float64(c.Tick-currentTick) / float64(ticksPerBeat) * (float64(currentTempo) / 1e6)
		currentTick = c.Tick
		currentTempo = c.MicrosPerBeat
	}
	seconds += float64(ticks-currentTick) / float64(ticksPerBeat) * (float64(currentTempo) / 1e6)
	return seconds
}
