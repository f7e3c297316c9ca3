// Package smartbuf holds the data model shared by every sample-generation
// component: the stereo frame, the SmartBuffer phrase, and the Slice/SliceMap
// primitives the slicer builds on top of it.
package smartbuf

import "fmt"

// Frame is one stereo sample pair, range [-1.0, +1.0].
type Frame struct {
	L, R float32
}

// Equilibrium is the silent frame.
var Equilibrium = Frame{}

// ScaleAmp returns f scaled by gain g.
func (f Frame) ScaleAmp(g float32) Frame {
	return Frame{f.L * g, f.R * g}
}

// Add returns the sum of f and o.
func (f Frame) Add(o Frame) Frame {
	return Frame{f.L + o.L, f.R + o.R}
}

// PositionsMode names a slice-boundary table kept on every SmartBuffer.
type PositionsMode int

const (
	Onset PositionsMode = iota
	QuantizedOnset
	Bar4
	Bar8
	Bar16
)

func (m PositionsMode) String() string {
	switch m {
	case Onset:
		return "onset"
	case QuantizedOnset:
		return "quantized_onset"
	case Bar4:
		return "bar/4"
	case Bar8:
		return "bar/8"
	case Bar16:
		return "bar/16"
	default:
		return "unknown"
	}
}

// AllPositionsModes lists every mode a SmartBuffer must keep a table for.
var AllPositionsModes = [...]PositionsMode{Onset, QuantizedOnset, Bar4, Bar8, Bar16}

// SmartBuffer is an immutable-after-load audio phrase: frames plus the
// analysis metadata needed to snap it to a clock (§3, §4.2).
type SmartBuffer struct {
	FileName      string
	Frames        []Frame
	OriginalTempo float64
	NumBeats      int
	Positions     map[PositionsMode][]int
}

// NewEmpty returns a zero-length SmartBuffer. Library lookups that miss a
// name fall back to a buffer built this way (§4.3) rather than failing.
func NewEmpty() *SmartBuffer {
	sb := &SmartBuffer{
		FileName:      "",
		Frames:        nil,
		OriginalTempo: 120.0,
		NumBeats:      1,
		Positions:     make(map[PositionsMode][]int, len(AllPositionsModes)),
	}
	for _, m := range AllPositionsModes {
		sb.Positions[m] = []int{0, 0}
	}
	return sb
}

// Validate checks the P1 invariant for every positions table: first == 0,
// last == len(Frames), strictly increasing, length >= 2.
func (sb *SmartBuffer) Validate() error {
	n := len(sb.Frames)
	for _, mode := range AllPositionsModes {
		pos, ok := sb.Positions[mode]
		if !ok || len(pos) < 2 {
			return fmt.Errorf("smartbuf: positions[%s] has fewer than 2 entries", mode)
		}
		if pos[0] != 0 {
			return fmt.Errorf("smartbuf: positions[%s] must start at 0, got %d", mode, pos[0])
		}
		if pos[len(pos)-1] != n {
			return fmt.Errorf("smartbuf: positions[%s] must end at %d, got %d", mode, n, pos[len(pos)-1])
		}
		for i := 1; i < len(pos); i++ {
			if pos[i] <= pos[i-1] {
				return fmt.Errorf("smartbuf: positions[%s] not strictly increasing at index %d", mode, i)
			}
		}
	}
	return nil
}

// CopyFrom copies other into sb, resizing frames and every positions table
// in place before the memcpy-equivalent so the steady-state path (buffer
// swap on the audio thread, outside of load) never allocates once warmed up.
func (sb *SmartBuffer) CopyFrom(other *SmartBuffer) {
	sb.FileName = other.FileName
	sb.OriginalTempo = other.OriginalTempo
	sb.NumBeats = other.NumBeats

	sb.Frames = growFrames(sb.Frames, len(other.Frames))
	copy(sb.Frames, other.Frames)

	if sb.Positions == nil {
		sb.Positions = make(map[PositionsMode][]int, len(AllPositionsModes))
	}
	for _, mode := range AllPositionsModes {
		src := other.Positions[mode]
		dst := growInts(sb.Positions[mode], len(src))
		copy(dst, src)
		sb.Positions[mode] = dst
	}
}

// Clone returns an independent deep copy of sb.
func (sb *SmartBuffer) Clone() *SmartBuffer {
	out := &SmartBuffer{}
	out.CopyFrom(sb)
	return out
}

func growFrames(s []Frame, n int) []Frame {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]Frame, n)
}

func growInts(s []int, n int) []int {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]int, n)
}

// Slice is a read-only window over a SmartBuffer's frames (§3).
type Slice struct {
	ID       int
	Start    int
	End      int
	Cursor   int
	Reversed bool
}

// Len returns the slot length (End - Start).
func (s Slice) Len() int {
	return s.End - s.Start
}

// IsConsumed reports whether Cursor has reached the end of the slot.
func (s Slice) IsConsumed() bool {
	return s.Cursor >= s.Len()
}

// SliceMap is an ordered start-frame-index -> Slice mapping. Keys stay
// sorted as they're inserted; a scratch slice is reused by random-swap
// operations to avoid per-call allocation.
type SliceMap struct {
	byKey   map[int]Slice
	keys    []int
	scratch []int
}

// NewSliceMap returns an empty SliceMap.
func NewSliceMap() *SliceMap {
	return &SliceMap{byKey: make(map[int]Slice)}
}

// Len returns the number of slices.
func (sm *SliceMap) Len() int {
	return len(sm.keys)
}

// Keys returns the ordered keys. The caller must not mutate the result.
func (sm *SliceMap) Keys() []int {
	return sm.keys
}

// Get looks up the slice at key.
func (sm *SliceMap) Get(key int) (Slice, bool) {
	s, ok := sm.byKey[key]
	return s, ok
}

// Set inserts or replaces the slice at key, preserving key order.
func (sm *SliceMap) Set(key int, s Slice) {
	if _, exists := sm.byKey[key]; !exists {
		sm.insertKey(key)
	}
	sm.byKey[key] = s
}

func (sm *SliceMap) insertKey(key int) {
	i := 0
	for i < len(sm.keys) && sm.keys[i] < key {
		i++
	}
	sm.keys = append(sm.keys, 0)
	copy(sm.keys[i+1:], sm.keys[i:])
	sm.keys[i] = key
}

// Clear empties the map but keeps its backing storage.
func (sm *SliceMap) Clear() {
	for k := range sm.byKey {
		delete(sm.byKey, k)
	}
	sm.keys = sm.keys[:0]
}

// CloneFrom replaces sm's contents with a value-copy of other's, preserving
// key order. Used by transforms (Reset copies orig -> playing).
func (sm *SliceMap) CloneFrom(other *SliceMap) {
	sm.Clear()
	for _, k := range other.keys {
		sm.Set(k, other.byKey[k])
	}
}

// FloorKey returns the greatest key <= frameIndex, or the last key if none
// qualifies (§4.4.2's current-slice selection rule). Returns false only when
// the map is empty.
func (sm *SliceMap) FloorKey(frameIndex int) (int, bool) {
	if len(sm.keys) == 0 {
		return 0, false
	}
	best := sm.keys[0]
	found := false
	for _, k := range sm.keys {
		if k <= frameIndex {
			best = k
			found = true
		} else {
			break
		}
	}
	if !found {
		return sm.keys[len(sm.keys)-1], true
	}
	return best, true
}

// RandSwap permutes sm's values in place using perm as the target ordering
// of the original values (perm[i] is the source index, in original key
// order, whose value should land at position i), preserving key order and
// clamping each resulting slice's length to its original slot length (P3).
func (sm *SliceMap) RandSwap(orig *SliceMap, perm []int) {
	sm.scratch = append(sm.scratch[:0], orig.keys...)
	for i, key := range sm.scratch {
		srcKey := sm.scratch[perm[i]]
		srcSlice, _ := orig.Get(srcKey)
		dstSlot, _ := orig.Get(key)

		newSlice := srcSlice
		newSlice.Start = srcSlice.Start
		newSlice.End = newSlice.Start + dstSlot.Len()
		newSlice.Cursor = 0
		sm.Set(key, newSlice)
	}
}

// QuantRepeat rebuilds sm as repeated copies of a single captured slice
// (captured.Start, captured.End - already narrowed to the target step) at
// stride step, starting at 0 and continuing while the key stays below
// maxFrame (§4.4.5 QuantRepeat, P4). Every copy shares the captured slice's
// audio window and differs only by key and a fresh stable ID from nextID —
// this is what makes "output consists of N identical copies" true.
func (sm *SliceMap) QuantRepeat(captured Slice, step, maxFrame int, nextID func() int) {
	sm.Clear()
	if step <= 0 {
		return
	}
	for k := 0; k < maxFrame; k += step {
		s := captured
		s.ID = nextID()
		s.Cursor = 0
		sm.Set(k, s)
	}
}
