package smartbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBuffer(n int) *SmartBuffer {
	sb := &SmartBuffer{
		FileName:      "phrase.wav",
		Frames:        make([]Frame, n),
		OriginalTempo: 120,
		NumBeats:      4,
		Positions:     make(map[PositionsMode][]int),
	}
	for _, m := range AllPositionsModes {
		sb.Positions[m] = []int{0, n / 2, n}
	}
	return sb
}

func TestSmartBufferValidate_P1(t *testing.T) {
	sb := makeBuffer(1000)
	require.NoError(t, sb.Validate())

	sb.Positions[Onset][0] = 1
	assert.Error(t, sb.Validate())
}

func TestSmartBufferValidate_RejectsNonIncreasing(t *testing.T) {
	sb := makeBuffer(1000)
	sb.Positions[Bar4] = []int{0, 500, 500, 1000}
	assert.Error(t, sb.Validate())
}

func TestSmartBufferCopyFrom_P5(t *testing.T) {
	src := makeBuffer(2000)
	dst := NewEmpty()
	dst.CopyFrom(src)

	assert.Equal(t, src.FileName, dst.FileName)
	assert.Equal(t, src.OriginalTempo, dst.OriginalTempo)
	assert.Equal(t, src.NumBeats, dst.NumBeats)
	assert.Equal(t, src.Frames, dst.Frames)
	for _, m := range AllPositionsModes {
		assert.Equal(t, src.Positions[m], dst.Positions[m])
	}
}

func TestSmartBufferCopyFrom_ReusesBacking(t *testing.T) {
	dst := NewEmpty()
	dst.Frames = make([]Frame, 0, 4096)
	backing := &dst.Frames[:1][0]

	src := makeBuffer(2000)
	dst.CopyFrom(src)
	require.Len(t, dst.Frames, 2000)
	assert.Same(t, backing, &dst.Frames[:1][0])
}

func TestSliceMapFloorKey_P2(t *testing.T) {
	sm := NewSliceMap()
	sm.Set(0, Slice{ID: 0, Start: 0, End: 100})
	sm.Set(100, Slice{ID: 1, Start: 100, End: 250})
	sm.Set(250, Slice{ID: 2, Start: 250, End: 400})

	k, ok := sm.FloorKey(150)
	require.True(t, ok)
	assert.Equal(t, 100, k)

	k, ok = sm.FloorKey(0)
	require.True(t, ok)
	assert.Equal(t, 0, k)

	k, ok = sm.FloorKey(999)
	require.True(t, ok)
	assert.Equal(t, 250, k)

	s, ok := sm.Get(100)
	require.True(t, ok)
	assert.True(t, s.Start < s.End)
	assert.True(t, s.Cursor >= 0 && s.Cursor <= s.Len())
}

func TestSliceMapRandSwap_PreservesSlotLengthsAndKeys_P3(t *testing.T) {
	orig := NewSliceMap()
	orig.Set(0, Slice{ID: 0, Start: 0, End: 100})
	orig.Set(100, Slice{ID: 1, Start: 100, End: 260})
	orig.Set(260, Slice{ID: 2, Start: 260, End: 400})

	playing := NewSliceMap()
	playing.CloneFrom(orig)
	playing.RandSwap(orig, []int{2, 0, 1})

	assert.Equal(t, orig.Keys(), playing.Keys())

	origLens := map[int]int{}
	for _, k := range orig.Keys() {
		s, _ := orig.Get(k)
		origLens[s.Len()]++
	}
	gotLens := map[int]int{}
	for _, k := range playing.Keys() {
		s, _ := playing.Get(k)
		gotLens[s.Len()]++
	}
	assert.Equal(t, origLens, gotLens)
}

func TestSliceMapQuantRepeat_P4(t *testing.T) {
	sm := NewSliceMap()
	captured := Slice{ID: 7, Start: 1000, End: 1000 + 999}
	id := 100
	sm.QuantRepeat(captured, 1000, 3500, func() int { id++; return id })

	keys := sm.Keys()
	assert.Equal(t, []int{0, 1000, 2000, 3000}, keys)
	for _, k := range keys {
		s, ok := sm.Get(k)
		require.True(t, ok)
		assert.Equal(t, captured.Len(), s.Len())
	}
}
