package midiplay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/midiplay-go/internal/score"
)

func exportDoc() *Document {
	return &Document{
		TicksPerBeat: 480,
		Tracks: []score.Track{
			{Events: []score.Event{
				{Type: score.EventProgramChange, Tick: 0, Channel: 0, Program: 24},
				{Type: score.EventNoteOn, Tick: 0, Channel: 0, Note: 60, Velocity: 100},
				{Type: score.EventNoteOff, Tick: 480, Channel: 0, Note: 60},
			}},
			{Events: []score.Event{
				{Type: score.EventNoteOn, Tick: 480, Channel: 1, Note: 64, Velocity: 80},
				{Type: score.EventNoteOff, Tick: 960, Channel: 1, Note: 64},
			}},
		},
	}
}

func TestPlanAppliesTempoScale(t *testing.T) {
	full, err := Plan(exportDoc(), 100)
	require.NoError(t, err)
	double, err := Plan(exportDoc(), 200)
	require.NoError(t, err)
	require.Len(t, full, 2)
	require.Len(t, double, 2)

	assert.InDelta(t, 0.5, full[1].Start, 1e-9)
	assert.InDelta(t, 0.5, full[1].Duration, 1e-9)
	assert.InDelta(t, 0.25, double[1].Start, 1e-9)
	assert.InDelta(t, 0.25, double[1].Duration, 1e-9)
	assert.Equal(t, 24, full[0].Instrument)
}

func TestPlanRejectsBadInput(t *testing.T) {
	_, err := Plan(nil, 100)
	assert.ErrorIs(t, err, ErrMalformedSource)
	_, err = Plan(exportDoc(), 0)
	assert.Error(t, err)
}

func TestExportStructuredIgnoresTempoScale(t *testing.T) {
	exp, err := ExportStructured(exportDoc())
	require.NoError(t, err)
	require.Len(t, exp.Tracks, 2)
	require.Len(t, exp.Tracks[0].Notes, 1)
	require.Len(t, exp.Tracks[1].Notes, 1)

	first := exp.Tracks[0].Notes[0]
	assert.Equal(t, uint8(60), first.Note)
	assert.InDelta(t, 0.0, first.Time, 1e-9)
	assert.InDelta(t, 0.5, first.Duration, 1e-9)
	assert.Equal(t, uint8(100), first.Velocity)

	second := exp.Tracks[1].Notes[0]
	assert.InDelta(t, 0.5, second.Time, 1e-9)
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(exportDoc(), &buf))

	var decoded StructuredExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Tracks, 2)
	assert.Equal(t, uint8(60), decoded.Tracks[0].Notes[0].Note)

	// field names are part of the format
	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "tracks")
}

func TestEncodeWAVHeader(t *testing.T) {
	out := EncodeWAVInt16LE([]float32{0, 0.5, -0.5, 2}, 44100, 2)
	require.Len(t, out, 44+8)

	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, uint32(36+8), binary.LittleEndian.Uint32(out[4:]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(out[16:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[20:]), "PCM format tag")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(out[22:]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(out[24:]))
	assert.Equal(t, uint32(44100*2*2), binary.LittleEndian.Uint32(out[28:]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(out[32:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[34:]))
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(out[40:]))

	// samples above full scale clamp instead of wrapping
	last := int16(binary.LittleEndian.Uint16(out[44+6:]))
	assert.Equal(t, int16(32767), last)
}

func TestExportWAVWithoutInstrumentsWritesValidHeader(t *testing.T) {
	p, _ := newTestPlayer(t, exportDoc())
	var buf bytes.Buffer
	require.NoError(t, p.ExportWAV(exportDoc(), &buf))
	out := buf.Bytes()
	require.GreaterOrEqual(t, len(out), 44)
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
}
