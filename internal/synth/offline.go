package synth

import (
	"fmt"
	"sort"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/averill/midiplay-go/internal/instrument"
)

// renderBlock is the sample granularity of offline event triggering. Offline
// output is block-quantized just like the live path is timer-quantized.
const renderBlock = 512

// releaseTail is the fraction of a second appended after the last note-off
// so release envelopes are not cut.
const releaseTailDivisor = 2

// Voice is one note of an offline render, in scaled seconds. A Gain of zero
// or less mutes the voice, matching the live path.
type Voice struct {
	Inst     *instrument.Instrument
	Pitch    uint8
	Velocity uint8
	Start    float64
	Duration float64
	Gain     float64
}

// RenderOffline renders the voices into interleaved stereo float32 samples,
// independent of wall time. Voices without an instrument are dropped, the
// same way the live path drops them.
func RenderOffline(voices []Voice, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("render: sample rate must be positive, got %d", sampleRate)
	}

	type trigger struct {
		sample int
		on     bool
		synth  *meltysynth.Synthesizer
		ch     int32
		pitch  int32
		vel    int32
	}

	synths := make(map[*meltysynth.SoundFont]*meltysynth.Synthesizer)
	synthFor := func(font *meltysynth.SoundFont) (*meltysynth.Synthesizer, error) {
		if s, ok := synths[font]; ok {
			return s, nil
		}
		s, err := meltysynth.NewSynthesizer(font, meltysynth.NewSynthesizerSettings(int32(sampleRate)))
		if err != nil {
			return nil, fmt.Errorf("render: synthesizer: %w", err)
		}
		synths[font] = s
		return s, nil
	}

	var triggers []trigger
	total := 0
	for _, v := range voices {
		if v.Inst == nil {
			continue
		}
		vel := scaledVelocity(v.Velocity, v.Gain)
		if vel == 0 {
			continue
		}
		synth, err := synthFor(v.Inst.Font)
		if err != nil {
			return nil, err
		}
		ch := int32(melodicChannel)
		if v.Inst.IsPercussion() {
			ch = percussionChannel
		}
		start := int(v.Start * float64(sampleRate))
		if start < 0 {
			start = 0
		}
		end := start + int(v.Duration*float64(sampleRate))
		if end < start {
			end = start
		}
		t := trigger{sample: start, on: true, synth: synth, ch: ch, pitch: int32(v.Pitch), vel: vel}
		triggers = append(triggers, t, trigger{sample: end, synth: synth, ch: ch, pitch: int32(v.Pitch)})
		if end > total {
			total = end
		}
	}
	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].sample < triggers[j].sample
	})
	if len(triggers) > 0 {
		total += sampleRate / releaseTailDivisor
	}

	out := make([]float32, total*2)
	left := make([]float32, renderBlock)
	right := make([]float32, renderBlock)
	next := 0
	for pos := 0; pos < total; pos += renderBlock {
		n := renderBlock
		if pos+n > total {
			n = total - pos
		}
		for next < len(triggers) && triggers[next].sample < pos+n {
			t := triggers[next]
			if t.on {
				t.synth.NoteOn(t.ch, t.pitch, t.vel)
			} else {
				t.synth.NoteOff(t.ch, t.pitch)
			}
			next++
		}
		for _, s := range synths {
			s.Render(left[:n], right[:n])
			for i := 0; i < n; i++ {
				out[(pos+i)*2] += left[i]
				out[(pos+i)*2+1] += right[i]
			}
		}
	}
	return out, nil
}
