package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constSource float32

func (s constSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = float32(s)
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(constSource(0.25))
	buf := make([]byte, 16) // two stereo frames
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	for i := 0; i < 4; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		assert.Equal(t, float32(0.25), math.Float32frombits(bits))
	}
}

func TestStreamReaderPartialFrame(t *testing.T) {
	r := NewStreamReader(constSource(0))
	n, err := r.Read(make([]byte, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "less than one frame reads nothing")
}

func TestStreamReaderNeverEnds(t *testing.T) {
	r := NewStreamReader(constSource(0))
	for i := 0; i < 3; i++ {
		n, err := r.Read(make([]byte, 64))
		require.NoError(t, err)
		assert.Equal(t, 64, n)
	}
	assert.NoError(t, r.Close())
}
