package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/smplr/internal/smartbuf"
)

func silentFrames(n int) []smartbuf.Frame {
	return make([]smartbuf.Frame, n)
}

func TestAnalyzeParsesBPMFromFileName(t *testing.T) {
	frames := silentFrames(int(2 * sampleRate))
	res := Analyze("loop_120bpm.wav", frames)
	assert.InDelta(t, 120, res.OriginalTempo, 1e-6)
	assert.Greater(t, res.NumBeats, 0)
}

func TestAnalyzeParsesBeatsFromFileName(t *testing.T) {
	frames := silentFrames(int(2 * sampleRate))
	res := Analyze("phrase_16beats.wav", frames)
	assert.Equal(t, 16, res.NumBeats)
	assert.Greater(t, res.OriginalTempo, 0.0)
}

func TestAnalyzePositionsSatisfyP1(t *testing.T) {
	frames := silentFrames(int(4 * sampleRate))
	res := Analyze("unnamed.wav", frames)
	n := len(frames)
	for _, mode := range smartbuf.AllPositionsModes {
		pos := res.Positions[mode]
		require.GreaterOrEqual(t, len(pos), 2)
		assert.Equal(t, 0, pos[0])
		assert.Equal(t, n, pos[len(pos)-1])
		for i := 1; i < len(pos); i++ {
			assert.Greater(t, pos[i], pos[i-1])
		}
	}
}

func TestAnalyzeOnsetFallbackMatchesBar8ForNonFourBeatPhrase(t *testing.T) {
	// Silence triggers the <3-onset fallback; an 8-beat filename forces
	// numBeats=8, so the fallback should produce Bar/8's 16 segments
	// (numBeats*2), not a flat 8-way split.
	frames := silentFrames(int(4 * sampleRate))
	res := Analyze("pad_8beats.wav", frames)
	assert.Equal(t, res.Positions[smartbuf.Bar8], res.Positions[smartbuf.Onset])
	assert.Equal(t, 17, len(res.Positions[smartbuf.Onset])) // numBeats(8)*8/4 + 1 segments
}

func TestEstimateTempoClampsIntoDanceRange(t *testing.T) {
	mono := make([]float64, 8192)
	for i := range mono {
		mono[i] = math.Sin(float64(i) * 0.2)
	}
	tempo := estimateTempo(mono)
	assert.GreaterOrEqual(t, tempo, 80.0)
	assert.LessOrEqual(t, tempo, 190.0)
}

func TestBarDivisionCounts(t *testing.T) {
	positions := barDivision(1600, 4, 16)
	assert.Equal(t, 17, len(positions))
}
