package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/smplr/internal/smartbuf"
)

type fakeSource struct {
	frame smartbuf.Frame
}

func (f *fakeSource) NextBlock(out []smartbuf.Frame) {
	for i := range out {
		out[i] = f.frame
	}
}

func TestCallbackInterleavesStereoFrames(t *testing.T) {
	src := &fakeSource{frame: smartbuf.Frame{L: 0.25, R: -0.5}}
	s := &Stream{source: src, block: make([]smartbuf.Frame, 4)}

	out := make([]float32, 8)
	s.callback(out)

	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(0.25), out[2*i])
		assert.Equal(t, float32(-0.5), out[2*i+1])
	}
}

func TestCallbackResizesBlockToMatchOutput(t *testing.T) {
	src := &fakeSource{frame: smartbuf.Frame{L: 1, R: 1}}
	s := &Stream{source: src, block: make([]smartbuf.Frame, 2)}

	out := make([]float32, 16)
	s.callback(out)
	assert.Len(t, s.block, 8)
}
