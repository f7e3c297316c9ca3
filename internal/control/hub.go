package control

import "log"

// hubQueueCapacity is the outbound bounded queue size the audio thread
// drains from (§4.11).
const hubQueueCapacity = 1024

// producerQueueCapacity sizes each inbound per-producer channel.
const producerQueueCapacity = 256

// Hub muxes MIDI and OSC producer channels into one bounded outbound channel
// (§4.11, §5). NewHub spawns a single merge goroutine that selects over both
// inbound producer channels; the producers themselves (the MIDI and OSC
// transports) run in their own goroutines outside the hub.
type Hub struct {
	midiIn chan ControlMessage
	oscIn  chan ControlMessage
	out    chan ControlMessage
	done   chan struct{}

	droppedBurst bool
}

// NewHub creates and starts a Hub. Call Stop to terminate its goroutines.
func NewHub() *Hub {
	h := &Hub{
		midiIn: make(chan ControlMessage, producerQueueCapacity),
		oscIn:  make(chan ControlMessage, producerQueueCapacity),
		out:    make(chan ControlMessage, hubQueueCapacity),
		done:   make(chan struct{}),
	}
	go h.run()
	return h
}

// MidiProducer returns the channel the MIDI transport should send decoded
// messages on. Producers must use TrySendMidi rather than writing directly
// so a saturated queue degrades instead of blocking (§5, FullControlQueue).
func (h *Hub) MidiProducer() chan<- ControlMessage { return h.midiIn }

// OSCProducer returns the channel the OSC transport should send decoded
// messages on.
func (h *Hub) OSCProducer() chan<- ControlMessage { return h.oscIn }

// TrySendMidi attempts a non-blocking send from the MIDI transport. Returns
// false if the inbound queue is saturated; the message is then dropped and
// a log line is written for every dropped message (drops are not collapsed
// into one line per burst).
func (h *Hub) TrySendMidi(m ControlMessage) bool {
	select {
	case h.midiIn <- m:
		return true
	default:
		log.Printf("control: MIDI inbound queue full, dropping message")
		return false
	}
}

// TrySendOSC attempts a non-blocking send from the OSC transport.
func (h *Hub) TrySendOSC(m ControlMessage) bool {
	select {
	case h.oscIn <- m:
		return true
	default:
		log.Printf("control: OSC inbound queue full, dropping message")
		return false
	}
}

func (h *Hub) run() {
	for {
		select {
		case m := <-h.midiIn:
			h.forward(m)
		case m := <-h.oscIn:
			h.forward(m)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) forward(m ControlMessage) {
	select {
	case h.out <- m:
		h.droppedBurst = false
	default:
		if !h.droppedBurst {
			log.Printf("control: outbound queue full (FullControlQueue), dropping message")
			h.droppedBurst = true
		}
	}
}

// TryRecv drains one message from the outbound queue without blocking. The
// audio thread calls this in a loop until it returns false (§4.10 step 1).
func (h *Hub) TryRecv() (ControlMessage, bool) {
	select {
	case m := <-h.out:
		return m, true
	default:
		return ControlMessage{}, false
	}
}

// Stop terminates the hub's merge goroutine. Safe to call once.
func (h *Hub) Stop() {
	close(h.done)
}
