package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/smplr/internal/gen"
	"github.com/schollz/smplr/internal/smartbuf"
)

func TestFillNextBlockGrowsBufferLazily(t *testing.T) {
	tr := New(gen.NewRepitchGen(), 0)
	tr.FillNextBlock(64)
	assert.Equal(t, 64, len(tr.audioBuffer))
	tr.FillNextBlock(32)
	assert.Equal(t, 32, len(tr.audioBuffer))
}

func TestGetFrameOutOfRangeReturnsEquilibrium(t *testing.T) {
	tr := New(gen.NewRepitchGen(), 0)
	tr.FillNextBlock(4)
	assert.Equal(t, smartbuf.Equilibrium, tr.GetFrame(100))
	assert.Equal(t, smartbuf.Equilibrium, tr.GetFrame(-1))
}

func TestLoadBufferRecordsSampleName(t *testing.T) {
	tr := New(gen.NewRepitchGen(), 0)
	buf := &smartbuf.SmartBuffer{
		FileName: "kick.wav",
		Frames:   make([]smartbuf.Frame, 8),
		Positions: map[smartbuf.PositionsMode][]int{
			smartbuf.Onset: {0, 8}, smartbuf.QuantizedOnset: {0, 8},
			smartbuf.Bar4: {0, 8}, smartbuf.Bar8: {0, 8}, smartbuf.Bar16: {0, 8},
		},
		OriginalTempo: 120,
		NumBeats:      1,
	}
	tr.LoadBuffer(buf)
	require.Equal(t, "kick.wav", tr.SampleName)
}
