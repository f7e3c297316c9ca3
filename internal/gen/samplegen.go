package gen

import (
	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/smartbuf"
)

// SampleRate is the engine's fixed output rate (§1 Non-goals: 44.1kHz only).
const SampleRate = 44100.0

// PPQN is MIDI clock resolution: pulses per quarter note.
const PPQN = 24

// NoClickFade is the half-width, in samples, of the click-avoidance
// crossfade applied around every clock-induced frame-index jump (§4.8).
const NoClickFade = 64

// SampleGen is the structural-composition base embedded by every concrete
// generator: the common fields and the shared Sync primitive (§4.8, §9).
type SampleGen struct {
	SmartBuf     *smartbuf.SmartBuffer
	PlaybackRate float64
	PlaybackMult uint64
	Playing      bool
	FrameIndex   uint64
	LoopDiv      uint64
	NextLoopDiv  uint64
	LastTicks    uint64

	SyncCursor         uint64
	SyncNextFrameIndex uint64
}

// NewSampleGen returns a SampleGen in its initial, unloaded state.
func NewSampleGen() *SampleGen {
	return &SampleGen{
		SmartBuf:     smartbuf.NewEmpty(),
		PlaybackRate: 1.0,
		LoopDiv:      1,
		NextLoopDiv:  1,
	}
}

// BeatSamples returns the number of 44.1kHz samples in one beat at tempo.
func BeatSamples(tempo float64) float64 {
	if tempo <= 0 {
		return SampleRate
	}
	return SampleRate * 60.0 / tempo
}

// SamplesPerPPQNTick returns samples-per-MIDI-clock-tick at the buffer's
// original tempo.
func (g *SampleGen) SamplesPerPPQNTick() float64 {
	return BeatSamples(g.SmartBuf.OriginalTempo) / float64(PPQN)
}

// LoopGetMaxFrame returns the effective loop length in frames: the buffer
// length divided down to `num_beats/loop_div` beats (§9, LoopDiv open
// question), clamped to the buffer's actual length.
func (g *SampleGen) LoopGetMaxFrame() uint64 {
	total := len(g.SmartBuf.Frames)
	if total == 0 {
		return 1
	}
	if g.LoopDiv <= 1 || g.SmartBuf.NumBeats <= 0 {
		return uint64(total)
	}
	effectiveBeats := float64(g.SmartBuf.NumBeats) / float64(g.LoopDiv)
	max := uint64(effectiveBeats * BeatSamples(g.SmartBuf.OriginalTempo))
	if max == 0 {
		max = 1
	}
	if max > uint64(total) {
		max = uint64(total)
	}
	return max
}

// ClockFrames converts a MIDI tick count into a buffer-frame position at the
// buffer's original tempo, wrapped to the effective loop length (§4.4.1,
// §4.5).
func (g *SampleGen) ClockFrames(ticks uint64) uint64 {
	raw := uint64(float64(ticks) * g.SamplesPerPPQNTick())
	maxFrame := g.LoopGetMaxFrame()
	if maxFrame == 0 {
		return 0
	}
	return raw % maxFrame
}

// IsBeatFrame reports whether ticks lands exactly on a beat boundary at the
// buffer's original tempo.
func (g *SampleGen) IsBeatFrame(ticks uint64) bool {
	beatSamples := uint64(BeatSamples(g.SmartBuf.OriginalTempo))
	if beatSamples == 0 {
		return false
	}
	clockFrames := uint64(float64(ticks) * g.SamplesPerPPQNTick())
	return clockFrames%beatSamples == 0
}

// ApplyLoopDivOnBeat swaps in a pending loop-div change, but only exactly on
// a beat boundary (§9 Open Question #2).
func (g *SampleGen) ApplyLoopDivOnBeat(ticks uint64) {
	if g.NextLoopDiv != g.LoopDiv && g.IsBeatFrame(ticks) {
		g.LoopDiv = g.NextLoopDiv
	}
}

// SyncSetFrameIndex schedules a click-free jump to newIndex: the generator
// keeps fading out the current position for NoClickFade samples, then fades
// in from newIndex+NoClickFade (§4.8).
func (g *SampleGen) SyncSetFrameIndex(newIndex uint64) {
	g.SyncCursor = 0
	g.SyncNextFrameIndex = newIndex
}

// SyncGetNextFrame returns the next frame, crossfading across any pending
// clock-induced jump over 2*NoClickFade samples so a jump never clicks
// (§4.8, P6).
func (g *SampleGen) SyncGetNextFrame() smartbuf.Frame {
	maxFrame := g.LoopGetMaxFrame()
	if maxFrame == 0 || len(g.SmartBuf.Frames) == 0 {
		return smartbuf.Equilibrium
	}
	idx := g.FrameIndex % maxFrame
	var out smartbuf.Frame
	if int(idx) < len(g.SmartBuf.Frames) {
		out = g.SmartBuf.Frames[idx]
	}

	if g.SyncCursor <= NoClickFade {
		out = out.ScaleAmp(FadeOut(int(g.SyncCursor), NoClickFade, NoClickFade))
	} else {
		out = out.ScaleAmp(FadeIn(int(g.SyncCursor)-NoClickFade, NoClickFade))
	}

	if g.SyncCursor == NoClickFade {
		g.FrameIndex = g.SyncNextFrameIndex + NoClickFade
	} else {
		g.FrameIndex++
	}
	g.SyncCursor++
	return out
}

// Reset rewinds the sync state to the start of the buffer.
func (g *SampleGen) Reset() {
	g.FrameIndex = 0
	g.SyncCursor = 0
	g.SyncNextFrameIndex = 0
}

// Generator is the capability set every SampleGenerator implements (§9):
// a closed, non-plugin tagged variant so the realtime path never takes a
// heap-indirected call through a growable registry.
type Generator interface {
	NextBlock(out []smartbuf.Frame)
	LoadBuffer(buf *smartbuf.SmartBuffer)
	Sync(globalTempo uint64, ticks uint64)
	Play()
	Stop()
	SetPlaybackMult(mult uint64)
	SetLoopDiv(div uint64)
	Reset()
	PushControlMessage(t control.SlicerTransform)
}
