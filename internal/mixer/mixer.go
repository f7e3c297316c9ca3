// Package mixer implements AudioMixer: the realtime block loop that drains
// control messages, fills every track, and sums/pans/writes the final
// stereo block (§4.10).
package mixer

import (
	"math"

	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/library"
	"github.com/schollz/smplr/internal/smartbuf"
	"github.com/schollz/smplr/internal/track"
)

// Receiver is the non-blocking control-message source the mixer drains
// every block (satisfied by control.Hub).
type Receiver interface {
	TryRecv() (control.ControlMessage, bool)
}

// Mixer owns the SampleLibrary, the ordered tracks, the tick counter, and
// the control-message receive endpoint (§4.10).
type Mixer struct {
	Library *library.Library
	Tracks  []*track.Track
	Hub     Receiver

	globalTempo uint64
	ticks       uint64
}

// New returns a Mixer over lib and tracks, draining control messages from
// hub.
func New(lib *library.Library, tracks []*track.Track, hub Receiver) *Mixer {
	return &Mixer{Library: lib, Tracks: tracks, Hub: hub, globalTempo: 120}
}

// NextBlock drains pending control messages, fills every track, then sums,
// pans, and writes the mixed block into out (§4.10).
func (m *Mixer) NextBlock(out []smartbuf.Frame) {
	m.fetchCommands()

	for _, t := range m.Tracks {
		t.Generator.Sync(m.globalTempo, m.ticks)
		t.FillNextBlock(len(out))
	}

	n := len(out)
	for i := 0; i < n; i++ {
		var accL, accR float64
		for _, t := range m.Tracks {
			f := t.GetFrame(i)
			vol := t.Volume.Step(n)
			panVal := t.Pan.Step(n)
			theta := (math.Pi / 2) * ((float64(panVal) + 1) / 2)
			l := float64(f.L) * float64(vol) * math.Cos(theta)
			r := float64(f.R) * float64(vol) * math.Sin(theta)
			accL += l
			accR += r
		}
		out[i] = smartbuf.Frame{L: float32(accL), R: float32(accR)}
	}
}

// fetchCommands drains the control hub non-blockingly and dispatches each
// message (§4.11).
func (m *Mixer) fetchCommands() {
	for {
		msg, ok := m.Hub.TryRecv()
		if !ok {
			return
		}
		m.dispatch(msg)
	}
}

func (m *Mixer) dispatch(msg control.ControlMessage) {
	switch msg.Kind {
	case control.KindPlayback:
		m.dispatchPlayback(msg.Playback)
	case control.KindTrackVolume:
		m.withTrack(msg.TrackNum, func(t *track.Track) { t.Volume.NewValue(msg.Val) })
	case control.KindTrackPan:
		m.withTrack(msg.TrackNum, func(t *track.Track) { t.Pan.NewValue(msg.Val) })
	case control.KindTrackSampleSelect:
		m.dispatchSampleSelect(msg)
	case control.KindTrackNextSample:
		m.withTrack(msg.TrackNum, func(t *track.Track) { m.loadSibling(t, 1) })
	case control.KindTrackPrevSample:
		m.withTrack(msg.TrackNum, func(t *track.Track) { m.loadSibling(t, -1) })
	case control.KindTrackLoopDiv:
		m.withTrack(msg.TrackNum, func(t *track.Track) { t.Generator.SetLoopDiv(msg.LoopDiv) })
	case control.KindSlicer:
		m.withTrack(msg.TrackNum, func(t *track.Track) { t.Generator.PushControlMessage(msg.Transform) })
	}
}

// dispatchPlayback fans a transport message out to every track (§4.11).
func (m *Mixer) dispatchPlayback(p control.PlaybackMessage) {
	switch p.Sync {
	case control.SyncStart:
		m.ticks = 0
		m.globalTempo = uint64(p.Time.Tempo)
		for _, t := range m.Tracks {
			t.Generator.Play()
		}
	case control.SyncStop:
		for _, t := range m.Tracks {
			t.Generator.Stop()
		}
	case control.SyncTick:
		m.ticks = p.Tick
		if p.Time.Tempo > 0 {
			m.globalTempo = uint64(p.Time.Tempo)
		}
	}
}

// dispatchSampleSelect only acts on Up/Down transitions; Stable is a no-op
// (§9 Open Question #3).
func (m *Mixer) dispatchSampleSelect(msg control.ControlMessage) {
	m.withTrack(msg.TrackNum, func(t *track.Track) {
		t.SampleSelect.NewValue(msg.Val)
		switch t.SampleSelect.Direction() {
		case control.DirectionUp:
			m.loadSibling(t, 1)
		case control.DirectionDown:
			m.loadSibling(t, -1)
		}
	})
}

func (m *Mixer) loadSibling(t *track.Track, offset int) {
	sb := m.Library.Sibling(t.Bank, t.SampleName, offset)
	t.LoadBuffer(sb)
}

// withTrack dispatches to the track at trackNum; an out-of-range index is
// silently ignored (§7 OutOfRangeTrackNum).
func (m *Mixer) withTrack(trackNum int, fn func(t *track.Track)) {
	if trackNum < 0 || trackNum >= len(m.Tracks) {
		return
	}
	fn(m.Tracks[trackNum])
}
