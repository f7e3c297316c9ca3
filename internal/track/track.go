// Package track implements AudioTrack: a generator plus its smoothed
// parameters and scratch output buffer (§4.9).
package track

import (
	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/gen"
	"github.com/schollz/smplr/internal/smartbuf"
)

// Track pairs a generator with its smoothed volume/pan, sample-select
// direction detector, and bookkeeping of which bank/sample is loaded
// (§4.9).
type Track struct {
	Generator gen.Generator

	Volume       control.SmoothParam
	Pan          control.SmoothParam
	SampleSelect control.DirectionalParam

	Bank       int
	SampleName string

	audioBuffer []smartbuf.Frame
}

// New returns a Track wrapping g, starting at unity volume and centered
// pan.
func New(g gen.Generator, bank int) *Track {
	t := &Track{Generator: g, Bank: bank}
	t.Volume.NewValue(1.0)
	t.Pan.NewValue(0.0)
	return t
}

// FillNextBlock lazily grows the scratch buffer to size then asks the
// generator to fill it (§4.9).
func (t *Track) FillNextBlock(size int) {
	if cap(t.audioBuffer) < size {
		t.audioBuffer = make([]smartbuf.Frame, size)
	}
	t.audioBuffer = t.audioBuffer[:size]
	t.Generator.NextBlock(t.audioBuffer)
}

// GetFrame returns frame i of the last-filled block, or equilibrium on
// overflow (§4.9).
func (t *Track) GetFrame(i int) smartbuf.Frame {
	if i < 0 || i >= len(t.audioBuffer) {
		return smartbuf.Equilibrium
	}
	return t.audioBuffer[i]
}

// LoadBuffer forwards to the generator and records the new sample's name.
func (t *Track) LoadBuffer(buf *smartbuf.SmartBuffer) {
	t.Generator.LoadBuffer(buf)
	t.SampleName = buf.FileName
}
