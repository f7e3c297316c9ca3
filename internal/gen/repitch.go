package gen

import (
	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/smartbuf"
)

// unityGainRepitch balances RePitchGen's perceived loudness against the
// other two generator types (§4.5).
const unityGainRepitch = 1.44

// linInterp is a two-tap linear interpolator over the click-free sync
// stream (§4.5).
type linInterp struct {
	left, right smartbuf.Frame
	val         float64
}

func (li *linInterp) nextSourceFrame(f smartbuf.Frame) {
	li.left = li.right
	li.right = f
}

func (li *linInterp) interpolate(x float64) smartbuf.Frame {
	return smartbuf.Frame{
		L: float32(float64(li.left.L) + (float64(li.right.L)-float64(li.left.L))*x),
		R: float32(float64(li.left.R) + (float64(li.right.R)-float64(li.left.R))*x),
	}
}

// RepitchGen is the linear-interpolation pitch/speed follower (§4.5).
type RepitchGen struct {
	Base   *SampleGen
	interp linInterp
}

// NewRepitchGen returns a new RepitchGen.
func NewRepitchGen() *RepitchGen {
	return &RepitchGen{Base: NewSampleGen()}
}

// NextBlock fills out with the repitched output, or silence if stopped.
func (rg *RepitchGen) NextBlock(out []smartbuf.Frame) {
	if !rg.Base.Playing {
		for i := range out {
			out[i] = smartbuf.Equilibrium
		}
		return
	}
	for i := range out {
		out[i] = rg.next().ScaleAmp(unityGainRepitch)
	}
}

func (rg *RepitchGen) next() smartbuf.Frame {
	rg.Base.ApplyLoopDivOnBeat(rg.Base.LastTicks)

	for rg.interp.val >= 1.0 {
		rg.interp.nextSourceFrame(rg.Base.SyncGetNextFrame())
		rg.interp.val -= 1.0
	}

	out := rg.interp.interpolate(rg.interp.val)
	rg.interp.val += rg.Base.PlaybackRate
	return out
}

// LoadBuffer copies smartbuf into the generator's local buffer (§4.2).
func (rg *RepitchGen) LoadBuffer(buf *smartbuf.SmartBuffer) {
	rg.Base.SmartBuf.CopyFrom(buf)
}

// Sync re-derives the playback rate and, on a rate change or beat boundary,
// snaps the frame index to the clock via a click-free jump (§4.5).
func (rg *RepitchGen) Sync(globalTempo uint64, ticks uint64) {
	rg.Base.LastTicks = ticks
	originalTempo := rg.Base.SmartBuf.OriginalTempo
	clockFrames := rg.Base.ClockFrames(ticks)
	isBeat := rg.Base.IsBeatFrame(ticks)
	newRate := float64(globalTempo) / originalTempo

	if rg.Base.PlaybackRate != newRate || isBeat {
		rg.Base.PlaybackRate = newRate
		rg.Base.SyncSetFrameIndex(clockFrames)
	}
	rg.Base.ApplyLoopDivOnBeat(ticks)
}

// Play unmutes the generator if a buffer is loaded.
func (rg *RepitchGen) Play() {
	if len(rg.Base.SmartBuf.Frames) > 0 {
		rg.Base.Playing = true
	}
}

// Stop resets and mutes the generator.
func (rg *RepitchGen) Stop() {
	rg.Reset()
	rg.Base.Playing = false
}

// SetPlaybackMult sets the playback-rate multiplier.
func (rg *RepitchGen) SetPlaybackMult(mult uint64) {
	rg.Base.PlaybackMult = mult
}

// SetLoopDiv schedules a loop-div change for the next beat boundary.
func (rg *RepitchGen) SetLoopDiv(div uint64) {
	rg.Base.NextLoopDiv = div
}

// Reset rewinds playback to the start position.
func (rg *RepitchGen) Reset() {
	rg.Base.Reset()
	rg.interp = linInterp{}
}

// PushControlMessage is a no-op: RepitchGen has no transform queue.
func (rg *RepitchGen) PushControlMessage(control.SlicerTransform) {}
