package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/gomidi/midi/v2"

	"github.com/schollz/smplr/internal/control"
)

func TestDecodeTimingClockAdvancesTicks(t *testing.T) {
	l := &Listener{tempo: 120}
	msg := midi.TimingClock()
	cm, ok := l.decode(msg, 10)
	require.True(t, ok)
	assert.Equal(t, control.KindPlayback, cm.Kind)
	assert.Equal(t, uint64(1), l.ticks)
	assert.Equal(t, control.SyncTick, cm.Playback.Sync)
}

func TestDecodeStartResetsTicks(t *testing.T) {
	l := &Listener{tempo: 120, ticks: 42}
	cm, ok := l.decode(midi.Start(), 0)
	require.True(t, ok)
	assert.Equal(t, control.SyncStart, cm.Playback.Sync)
	assert.Equal(t, uint64(0), l.ticks)
}

func TestDecodeStop(t *testing.T) {
	l := &Listener{}
	cm, ok := l.decode(midi.Stop(), 0)
	require.True(t, ok)
	assert.Equal(t, control.SyncStop, cm.Playback.Sync)
}

func TestDecodeCCMissingTemplateDropsMessage(t *testing.T) {
	l := &Listener{ccTable: map[uint8]map[uint8]CCTemplate{}}
	cm, ok := l.decode(midi.ControlChange(0, 1, 64), 0)
	assert.False(t, ok)
	assert.Equal(t, control.ControlMessage{}, cm)
}

func TestDecodeCCAppliesTemplateAndRemap(t *testing.T) {
	l := &Listener{ccTable: map[uint8]map[uint8]CCTemplate{
		0: {1: {Kind: control.KindTrackVolume, TrackNum: 2}},
	}}
	cm, ok := l.decode(midi.ControlChange(0, 1, 64), 0)
	require.True(t, ok)
	assert.Equal(t, control.KindTrackVolume, cm.Kind)
	assert.Equal(t, 2, cm.TrackNum)
	assert.InDelta(t, 64.0/128.0*1.2, cm.Val, 1e-3)
}
