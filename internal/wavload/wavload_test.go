package wavload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/smplr/internal/smartbuf"
)

func TestNormalizePerChannelScalesToUnityPeak(t *testing.T) {
	frames := []smartbuf.Frame{
		{L: 0.5, R: -0.25},
		{L: -1.0, R: 0.5},
	}
	normalizePerChannel(frames)
	assert.InDelta(t, 0.5, frames[0].L, 1e-6)
	assert.InDelta(t, -1.0, frames[1].L, 1e-6)
	assert.InDelta(t, -0.5, frames[0].R, 1e-6)
	assert.InDelta(t, 1.0, frames[1].R, 1e-6)
}

func TestNormalizePerChannelLeavesSilenceUntouched(t *testing.T) {
	frames := []smartbuf.Frame{{}, {}}
	assert.NotPanics(t, func() { normalizePerChannel(frames) })
	assert.Equal(t, smartbuf.Frame{}, frames[0])
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/does-not-exist.wav")
	assert.ErrorIs(t, err, ErrUnreadablePath)
}
