package midiplay

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/averill/midiplay-go/internal/score"
	"github.com/averill/midiplay-go/internal/synth"
)

// PlannedNote is one entry of the deterministic, wall-time-independent event
// list used for offline rendering. Start and Duration are tempo-scaled with
// exactly the formula the live scheduler uses, so export output matches
// playback.
type PlannedNote struct {
	Pitch      uint8
	Velocity   uint8
	Channel    uint8
	Track      int
	Start      float64
	Duration   float64
	Instrument int
}

// Plan re-runs the tempo map and event resolver and scales every note start
// and duration by tempoScalePercent.
func Plan(doc *Document, tempoScalePercent int) ([]PlannedNote, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformedSource)
	}
	if tempoScalePercent <= 0 {
		return nil, errInvalidTempoScale
	}
	rate := float64(tempoScalePercent) / 100
	res := score.Resolve(doc)
	planned := make([]PlannedNote, 0, len(res.Notes))
	for _, n := range res.Notes {
		planned = append(planned, PlannedNote{
			Pitch:      n.Pitch,
			Velocity:   n.Velocity,
			Channel:    n.Channel,
			Track:      n.Track,
			Start:      n.Start / rate,
			Duration:   n.Duration / rate,
			Instrument: n.Instrument,
		})
	}
	return planned, nil
}

// StructuredExport is the non-audio export artifact. Times are the piece's
// native (unscaled) timing; tempo scale is deliberately not applied here,
// unlike the audio export.
type StructuredExport struct {
	Tracks []StructuredTrack `json:"tracks"`
}

type StructuredTrack struct {
	Notes []StructuredNote `json:"notes"`
}

type StructuredNote struct {
	Note     uint8   `json:"note"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Velocity uint8   `json:"velocity"`
}

// ExportStructured resolves doc into per-track note lists in unscaled
// seconds, mirroring the track layout of the source document.
func ExportStructured(doc *Document) (*StructuredExport, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrMalformedSource)
	}
	res := score.Resolve(doc)
	out := &StructuredExport{Tracks: make([]StructuredTrack, len(doc.Tracks))}
	for _, n := range res.Notes {
		if n.Track < 0 || n.Track >= len(out.Tracks) {
			continue
		}
		out.Tracks[n.Track].Notes = append(out.Tracks[n.Track].Notes, StructuredNote{
			Note:     n.Pitch,
			Time:     n.Start,
			Duration: n.Duration,
			Velocity: n.Velocity,
		})
	}
	return out, nil
}

// WriteJSON writes the structured export of doc to w.
func WriteJSON(doc *Document, w io.Writer) error {
	exp, err := ExportStructured(doc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

// ExportWAV renders the document offline at the player's current tempo
// scale and writes a 16-bit PCM RIFF/WAVE file to w. The player's
// instrument cache is shared with live playback, and a render failure
// produces no partial file.
func (p *Player) ExportWAV(doc *Document, w io.Writer) error {
	p.mu.Lock()
	scale := p.scale
	sampleRate := p.sampleRate
	p.mu.Unlock()

	planned, err := Plan(doc, scale)
	if err != nil {
		return err
	}
	keys := make(map[int]bool)
	var distinct []int
	for _, n := range planned {
		if !keys[n.Instrument] {
			keys[n.Instrument] = true
			distinct = append(distinct, n.Instrument)
		}
	}
	p.cache.PreloadMany(distinct)

	gain := p.MasterVolume()
	voices := make([]synth.Voice, 0, len(planned))
	for _, n := range planned {
		voices = append(voices, synth.Voice{
			Inst:     p.cache.Handle(n.Instrument),
			Pitch:    n.Pitch,
			Velocity: n.Velocity,
			Start:    n.Start,
			Duration: n.Duration,
			Gain:     gain,
		})
	}
	samples, err := synth.RenderOffline(voices, sampleRate)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = w.Write(EncodeWAVInt16LE(samples, sampleRate, 2))
	return err
}

// EncodeWAVInt16LE lays out interleaved float32 samples as 16-bit PCM in a
// standard RIFF/WAVE container: 44-byte header, `fmt ` and `data` chunks,
// little-endian fields.
func EncodeWAVInt16LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		v := int16(clampSample(s) * 32767)
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(v))
	}
	return out
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
