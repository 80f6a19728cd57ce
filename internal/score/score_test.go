package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func buildSMF(t *testing.T, resolution uint16, add func(tr *smf.Track)) *smf.SMF {
	t.Helper()
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(resolution)
	var tr smf.Track
	add(&tr)
	tr.Close(0)
	require.NoError(t, sm.Add(tr))
	return sm
}

func TestFromSMFKeepsPlaybackEvents(t *testing.T) {
	sm := buildSMF(t, 480, func(tr *smf.Track) {
		tr.Add(0, smf.MetaTempo(120))
		tr.Add(0, midi.ProgramChange(0, 24))
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(480, midi.NoteOff(0, 60))
	})
	doc, err := FromSMF(sm)
	require.NoError(t, err)
	assert.Equal(t, 480, doc.TicksPerBeat)
	require.Len(t, doc.Tracks, 1)
	events := doc.Tracks[0].Events
	require.Len(t, events, 4)
	assert.Equal(t, EventTempo, events[0].Type)
	assert.Equal(t, int64(500000), events[0].MicrosPerBeat)
	assert.Equal(t, EventProgramChange, events[1].Type)
	assert.Equal(t, uint8(24), events[1].Program)
	assert.Equal(t, EventNoteOn, events[2].Type)
	assert.Equal(t, int64(0), events[2].Tick)
	assert.Equal(t, EventNoteOff, events[3].Type)
	assert.Equal(t, int64(480), events[3].Tick)
}

func TestFromSMFNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	sm := buildSMF(t, 480, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(480, midi.NoteOn(0, 60, 0))
	})
	doc, err := FromSMF(sm)
	require.NoError(t, err)
	events := doc.Tracks[0].Events
	require.Len(t, events, 2)
	assert.Equal(t, EventNoteOff, events[1].Type)
}

func TestFromSMFRejectsNil(t *testing.T) {
	_, err := FromSMF(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFromSMFRejectsNonPositiveTempo(t *testing.T) {
	sm := buildSMF(t, 480, func(tr *smf.Track) {
		// raw meta tempo with 0 µs/beat, which MetaTempo cannot produce
		tr.Add(0, smf.Message{0xff, 0x51, 0x03, 0x00, 0x00, 0x00})
	})
	_, err := FromSMF(sm)
	assert.ErrorIs(t, err, ErrMalformed)
}
