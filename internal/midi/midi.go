// Package midi listens on a virtual MIDI input port, decoding Timing
// Clock/Start/Stop/Control Change messages into control.ControlMessage
// values (§4.14, §6). Grounded on the teacher's internal/midiconnector,
// inverted from an output device into an input listener.
package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/schollz/smplr/internal/control"
)

// PortName is the virtual MIDI input port name exposed to controllers
// (§6).
const PortName = "Rust Smplr Input"

// CCTemplate names the ControlMessage to emit for one (channel, cc_number)
// pair, as loaded from config.midi_map (§4.11, §6).
type CCTemplate = control.ControlMessage

// Listener owns the open virtual MIDI input port and decodes incoming
// messages into ControlMessages pushed onto a sender.
type Listener struct {
	in      drivers.In
	ccTable map[uint8]map[uint8]CCTemplate

	tempo      float64
	ticks      uint64
	lastTickMs int64
}

// virtualInOpener is implemented by drivers (rtmididrv) capable of creating
// a virtual input port.
type virtualInOpener interface {
	OpenVirtualIn(name string) (drivers.In, error)
}

// Open creates the virtual MIDI input port named PortName. ccTable maps
// channel -> cc_number -> the ControlMessage template to clone per §4.11.
func Open(ccTable map[uint8]map[uint8]CCTemplate) (*Listener, error) {
	drv := drivers.Get()
	opener, ok := drv.(virtualInOpener)
	if !ok {
		return nil, fmt.Errorf("midi: driver %T cannot open virtual input ports", drv)
	}
	in, err := opener.OpenVirtualIn(PortName)
	if err != nil {
		return nil, fmt.Errorf("midi: open virtual port %q: %w", PortName, err)
	}
	return &Listener{in: in, ccTable: ccTable, tempo: 120}, nil
}

// Listen starts dispatching decoded messages to emit and returns at once;
// dispatching continues in the background until stop() is invoked or the
// port closes. emit is typically control.Hub.TrySendMidi (§4.14, §5).
func (l *Listener) Listen(emit func(control.ControlMessage) bool) (stop func(), err error) {
	return midi.ListenTo(l.in, func(msg midi.Message, timestampMs int32) {
		cm, ok := l.decode(msg, timestampMs)
		if !ok {
			return
		}
		emit(cm)
	})
}

// Close releases the virtual MIDI input port.
func (l *Listener) Close() error {
	return l.in.Close()
}

// decode turns one raw MIDI message into a ControlMessage. Unhandled
// message types and parse failures return ok=false and are dropped
// silently (§6, §7 MalformedMIDI).
func (l *Listener) decode(msg midi.Message, timestampMs int32) (control.ControlMessage, bool) {
	switch {
	case msg.Is(midi.TimingClockMsg):
		l.ticks++
		if l.lastTickMs != 0 {
			deltaMs := float64(timestampMs) - float64(l.lastTickMs)
			if deltaMs > 0 {
				l.tempo = 60000.0 / (deltaMs * float64(control.PPQN))
			}
		}
		l.lastTickMs = int64(timestampMs)
		return control.ControlMessage{
			Kind:  control.KindPlayback,
			Tcode: l.ticks,
			Playback: control.PlaybackMessage{
				Sync: control.SyncTick,
				Tick: l.ticks,
				Time: control.MidiTime{Tempo: l.tempo, Ticks: l.ticks, Beats: l.ticks / control.PPQN},
			},
		}, true

	case msg.Is(midi.StartMsg):
		l.ticks = 0
		return control.ControlMessage{
			Kind:     control.KindPlayback,
			Playback: control.PlaybackMessage{Sync: control.SyncStart, Time: control.MidiTime{Tempo: l.tempo}},
		}, true

	case msg.Is(midi.StopMsg):
		return control.ControlMessage{
			Kind:     control.KindPlayback,
			Playback: control.PlaybackMessage{Sync: control.SyncStop},
		}, true

	default:
		var channel, controller, value uint8
		if msg.GetControlChange(&channel, &controller, &value) {
			return l.decodeCC(channel, controller, value)
		}
	}
	return control.ControlMessage{}, false
}

// decodeCC looks up the config-driven template for (channel, controller),
// clones it, overwrites val/tcode from the wire value, and rescales into
// the per-control domain (§4.11).
func (l *Listener) decodeCC(channel, controller, value uint8) (control.ControlMessage, bool) {
	byCC, ok := l.ccTable[channel]
	if !ok {
		return control.ControlMessage{}, false
	}
	tmpl, ok := byCC[controller]
	if !ok {
		return control.ControlMessage{}, false
	}
	cm := tmpl
	cm.Val = float32(value) / 128.0
	cm.Tcode = l.ticks
	cm.RemapFromMIDI()
	return cm, true
}
