// Package slicer implements the SliceSequencer: the hardest subsystem in the
// engine (§4.4). It owns the three SliceMaps (orig/playing/temp), the
// transform queue, the crossfade machinery, and its own tempo-synced local
// clock, independent of the shared SampleGen sync primitive used by the
// other two generators.
package slicer

import (
	"math"
	"math/rand/v2"

	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/gen"
	"github.com/schollz/smplr/internal/smartbuf"
)

// crossfadeCapacity bounds the pre-emission frame queue primed before every
// transform or buffer swap (§4.4).
const crossfadeCapacity = 512

// Sequencer is the slice playback state machine (§4.4).
type Sequencer struct {
	buf           *smartbuf.SmartBuffer
	positionsMode smartbuf.PositionsMode

	orig    *smartbuf.SliceMap
	playing *smartbuf.SliceMap
	temp    *smartbuf.SliceMap

	currentSliceIdx int
	currentSlice    smartbuf.Slice

	pendingTransform *control.SlicerTransform

	crossfade    []smartbuf.Frame
	crossfadeT   int
	nextIDSeq    int

	globalTempo  uint64
	ticks        uint64
	playbackRate float64
	interTick    float64
}

// New returns a Sequencer inert until a buffer is loaded (§4.4.7).
func New(mode smartbuf.PositionsMode) *Sequencer {
	return &Sequencer{
		buf:           smartbuf.NewEmpty(),
		positionsMode: mode,
		orig:          smartbuf.NewSliceMap(),
		playing:       smartbuf.NewSliceMap(),
		temp:          smartbuf.NewSliceMap(),
		playbackRate:  1.0,
	}
}

func (s *Sequencer) nextID() int {
	s.nextIDSeq++
	return s.nextIDSeq
}

// LoadBuffer primes the crossfade queue from the currently-playing slice,
// copies newBuf into the local buffer slot, rebuilds orig/playing from its
// positions table, then aligns the first slice in the new buffer with the
// clock at swap time (§4.4.6).
func (s *Sequencer) LoadBuffer(newBuf *smartbuf.SmartBuffer) {
	s.primeCrossfade()
	s.buf.CopyFrom(newBuf)
	s.rebuildFromBuffer()
	s.snapCurrentSliceToClock()
}

func (s *Sequencer) rebuildFromBuffer() {
	positions := s.buf.Positions[s.positionsMode]
	s.orig.Clear()
	for i := 0; i+1 < len(positions); i++ {
		s.orig.Set(positions[i], smartbuf.Slice{
			ID:    s.nextID(),
			Start: positions[i],
			End:   positions[i+1],
		})
	}
	s.playing.CloneFrom(s.orig)
	s.temp.Clear()

	if s.playing.Len() > 0 {
		k := s.playing.Keys()[0]
		sl, _ := s.playing.Get(k)
		s.currentSliceIdx = k
		s.currentSlice = sl
	} else {
		s.currentSliceIdx = 0
		s.currentSlice = smartbuf.Slice{}
	}
}

// Sync sets the global tempo/ticks and resets the local clock's sub-tick
// counter (§4.4.1).
func (s *Sequencer) Sync(globalTempo uint64, ticks uint64) {
	s.globalTempo = globalTempo
	s.ticks = ticks
	s.interTick = 0
	if s.buf.OriginalTempo > 0 {
		s.playbackRate = float64(globalTempo) / s.buf.OriginalTempo
	} else {
		s.playbackRate = 1.0
	}
}

// localClock computes the current position in buffer frames (§4.4.1).
func (s *Sequencer) localClock() int {
	n := len(s.buf.Frames)
	if n == 0 {
		return 0
	}
	samplesPerTick := gen.BeatSamples(s.buf.OriginalTempo) / float64(gen.PPQN)
	local := int(float64(s.ticks)*samplesPerTick) % n
	local += int(math.Floor(s.interTick))
	return local
}

// CurrentSliceKey returns the key of the slice currently playing, used by
// the SlicerGen wrapper to capture a QuantRepeat's target at receipt time
// (§4.7).
func (s *Sequencer) CurrentSliceKey() int {
	return s.currentSliceIdx
}

// PushTransform enqueues a pending transform, replacing any not-yet-applied
// one (§4.4 "pending-transform slot").
func (s *Sequencer) PushTransform(t control.SlicerTransform) {
	tc := t
	s.pendingTransform = &tc
}

// NextFrame advances the sequencer by one output frame (§4.4.3).
func (s *Sequencer) NextFrame() smartbuf.Frame {
	if s.playing.Len() == 0 {
		return smartbuf.Equilibrium
	}

	s.interTick += s.playbackRate

	if s.pendingTransform != nil {
		t := *s.pendingTransform
		s.pendingTransform = nil
		s.applyTransform(t)
		s.snapCurrentSliceToClock()
	}

	if idx, ok := s.playing.FloorKey(s.localClock()); ok && idx != s.currentSliceIdx {
		sl, _ := s.playing.Get(idx)
		sl.Cursor = 0
		s.currentSliceIdx = idx
		s.currentSlice = sl
	}

	newFrame := s.sliceNextFrame(&s.currentSlice)

	if len(s.crossfade) > 0 {
		old := s.crossfade[0]
		s.crossfade = s.crossfade[1:]
		t := s.crossfadeT
		s.crossfadeT++
		return newFrame.ScaleAmp(gen.FadeIn(t, crossfadeCapacity)).
			Add(old.ScaleAmp(gen.FadeOut(t, crossfadeCapacity, crossfadeCapacity)))
	}
	return newFrame
}

// sliceNextFrame produces one frame from sl, advancing its cursor, per
// §4.4.4. Out-of-range reads and fully-consumed slices return equilibrium
// rather than panicking (§4.4.7).
func (s *Sequencer) sliceNextFrame(sl *smartbuf.Slice) smartbuf.Frame {
	length := sl.Len()
	adjustedLen := length
	if s.playbackRate >= 1.0 && s.playbackRate > 0 {
		adjustedLen = int(float64(length) / s.playbackRate)
	}

	var out smartbuf.Frame
	frameIdx := sl.Start + sl.Cursor
	if sl.Cursor < length && frameIdx >= 0 && frameIdx < len(s.buf.Frames) {
		out = s.buf.Frames[frameIdx]
	} else {
		out = smartbuf.Equilibrium
	}

	fadeInLen := int(256 * s.playbackRate)
	fadeOutLen := int(512 * s.playbackRate)
	out = out.ScaleAmp(gen.FadeIn(sl.Cursor, fadeInLen)).
		ScaleAmp(gen.FadeOut(sl.Cursor, fadeOutLen, adjustedLen)).
		ScaleAmp(1.45)

	sl.Cursor++
	return out
}

// primeCrossfade asks the current slice to emit up to crossfadeCapacity
// frames on a scratch copy (so the real current slice's cursor doesn't
// advance) and enqueues them, ahead of a transform or buffer swap (§4.4.5).
func (s *Sequencer) primeCrossfade() {
	s.crossfade = s.crossfade[:0]
	s.crossfadeT = 0
	scratch := s.currentSlice
	for i := 0; i < crossfadeCapacity; i++ {
		s.crossfade = append(s.crossfade, s.sliceNextFrame(&scratch))
	}
}

// snapCurrentSliceToClock re-derives the current slice from the clock,
// used after a transform applies and after a buffer swap (§4.4.3, §4.4.6).
func (s *Sequencer) snapCurrentSliceToClock() {
	lc := s.localClock()
	idx, ok := s.playing.FloorKey(lc)
	if !ok {
		return
	}
	sl, _ := s.playing.Get(idx)
	cursor := lc - idx
	if cursor < 0 {
		cursor = 0
	}
	if cursor > sl.Len() {
		cursor = sl.Len()
	}
	sl.Cursor = cursor
	s.currentSliceIdx = idx
	s.currentSlice = sl
}

// applyTransform primes the crossfade queue from the outgoing slice stream,
// then mutates `playing` according to t (§4.4.5). A transform naming a
// nonexistent slice index is ignored (§4.4.7).
func (s *Sequencer) applyTransform(t control.SlicerTransform) {
	s.primeCrossfade()

	switch t.Kind {
	case control.TransformReset:
		s.playing.CloneFrom(s.orig)

	case control.TransformRandSwap:
		n := s.orig.Len()
		if n == 0 {
			return
		}
		perm := rand.Perm(n)
		s.playing.RandSwap(s.orig, perm)

	case control.TransformQuantRepeat:
		if t.Quant <= 0 {
			return
		}
		barSamples := 4 * gen.BeatSamples(s.buf.OriginalTempo)
		step := int(barSamples) / t.Quant
		if step <= 0 {
			return
		}
		captured, ok := s.playing.Get(t.SliceIndex)
		if !ok {
			return
		}
		captured.End = captured.Start + step - 1
		captured.Cursor = 0
		s.playing.QuantRepeat(captured, step, len(s.buf.Frames), s.nextID)
	}
}
