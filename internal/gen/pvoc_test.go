package gen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/smplr/internal/smartbuf"
)

func sineBuffer(n int, freq, tempo float64) *smartbuf.SmartBuffer {
	frames := make([]smartbuf.Frame, n)
	for i := range frames {
		v := float32(math.Sin(2 * math.Pi * freq * float64(i) / SampleRate))
		frames[i] = smartbuf.Frame{L: v, R: v}
	}
	return &smartbuf.SmartBuffer{
		Frames:        frames,
		OriginalTempo: tempo,
		NumBeats:      4,
		Positions: map[smartbuf.PositionsMode][]int{
			smartbuf.Onset:          {0, n},
			smartbuf.QuantizedOnset: {0, n},
			smartbuf.Bar4:           {0, n},
			smartbuf.Bar8:           {0, n},
			smartbuf.Bar16:          {0, n},
		},
	}
}

func TestPhaseVocoderGenSilentWhenStopped(t *testing.T) {
	pv := NewPhaseVocoderGen()
	out := make([]smartbuf.Frame, 256)
	pv.NextBlock(out)
	for _, f := range out {
		assert.Equal(t, smartbuf.Equilibrium, f)
	}
}

func TestPhaseVocoderGenProducesFiniteOutput(t *testing.T) {
	pv := NewPhaseVocoderGen()
	buf := sineBuffer(44100, 440, 120)
	pv.LoadBuffer(buf)
	pv.Play()
	require.True(t, pv.Base.Playing)
	pv.Sync(120, 0)

	out := make([]smartbuf.Frame, 1024)
	pv.NextBlock(out)

	for _, f := range out {
		assert.False(t, math.IsNaN(float64(f.L)))
		assert.False(t, math.IsInf(float64(f.L), 0))
	}
}

func TestPhaseVocoderGenDoubleSpeedResetsUnit(t *testing.T) {
	pv := NewPhaseVocoderGen()
	buf := sineBuffer(44100, 440, 120)
	pv.LoadBuffer(buf)
	pv.Play()
	pv.Sync(120, 0)

	out := make([]smartbuf.Frame, 512)
	pv.NextBlock(out)

	pv.Sync(240, 0) // rate change -> forces pvoc unit reset
	assert.InDelta(t, 2.0, pv.Base.PlaybackRate, 1e-9)
	assert.Equal(t, 0, pv.unit.interpBlock)
}
