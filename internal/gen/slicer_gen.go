package gen

import (
	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/smartbuf"
)

// sequencer is the subset of slicer.Sequencer that SlicerGen depends on.
// Declared locally (rather than importing internal/slicer) to keep gen free
// of a dependency on the package that depends on it.
type sequencer interface {
	NextFrame() smartbuf.Frame
	LoadBuffer(buf *smartbuf.SmartBuffer)
	Sync(globalTempo uint64, ticks uint64)
	PushTransform(t control.SlicerTransform)
	CurrentSliceKey() int
}

// SlicerGen is a thin wrapper around a slicer.Sequencer: the common
// SampleGen state handles Play/Stop/loop-div bookkeeping, while all frame
// production and transform handling is delegated to the sequencer (§4.7).
type SlicerGen struct {
	Base *SampleGen
	Seq  sequencer
}

// NewSlicerGen returns a new SlicerGen wrapping seq.
func NewSlicerGen(seq sequencer) *SlicerGen {
	return &SlicerGen{Base: NewSampleGen(), Seq: seq}
}

// NextBlock fills out by iterating the sequencer, or silence if stopped.
func (sg *SlicerGen) NextBlock(out []smartbuf.Frame) {
	if !sg.Base.Playing {
		for i := range out {
			out[i] = smartbuf.Equilibrium
		}
		return
	}
	for i := range out {
		out[i] = sg.Seq.NextFrame()
	}
}

// LoadBuffer forwards to the sequencer's buffer-swap protocol (§4.4.6).
func (sg *SlicerGen) LoadBuffer(buf *smartbuf.SmartBuffer) {
	sg.Base.SmartBuf.CopyFrom(buf)
	sg.Seq.LoadBuffer(buf)
}

// Sync forwards (tempo, ticks) to the sequencer.
func (sg *SlicerGen) Sync(globalTempo uint64, ticks uint64) {
	sg.Base.LastTicks = ticks
	sg.Seq.Sync(globalTempo, ticks)
}

// Play unmutes the generator if a buffer is loaded.
func (sg *SlicerGen) Play() {
	if len(sg.Base.SmartBuf.Frames) > 0 {
		sg.Base.Playing = true
	}
}

// Stop resets and mutes the generator.
func (sg *SlicerGen) Stop() {
	sg.Reset()
	sg.Base.Playing = false
}

// SetPlaybackMult sets the playback-rate multiplier.
func (sg *SlicerGen) SetPlaybackMult(mult uint64) {
	sg.Base.PlaybackMult = mult
}

// SetLoopDiv schedules a loop-div change for the next beat boundary.
func (sg *SlicerGen) SetLoopDiv(div uint64) {
	sg.Base.NextLoopDiv = div
}

// Reset rewinds the shared state. The sequencer's own clock re-derives its
// position on the next Sync call.
func (sg *SlicerGen) Reset() {
	sg.Base.Reset()
}

// PushControlMessage forwards a slice transform to the sequencer. A
// QuantRepeat transform is rewritten to capture the sequencer's current
// slice index at the instant the message is received (§4.7).
func (sg *SlicerGen) PushControlMessage(t control.SlicerTransform) {
	if t.Kind == control.TransformQuantRepeat {
		t.SliceIndex = sg.Seq.CurrentSliceKey()
	}
	sg.Seq.PushTransform(t)
}
