// Package osc bridges ControlMessages over UDP: a server on :6667 decodes
// inbound requests, a client on :6666 answers pings and config queries
// (§4.15, §6). Grounded on the teacher's direct github.com/hypebeast/go-osc
// usage in internal/model/model.go.
package osc

import (
	"fmt"
	"log"
	"net"
	"sync"

	jsoniter "github.com/json-iterator/go"

	goosc "github.com/hypebeast/go-osc/osc"

	"github.com/schollz/smplr/internal/control"
)

const (
	// ListenPort is the inbound OSC UDP port (§6).
	ListenPort = 6667
	// ReplyPort is the outbound OSC UDP port back to the controller (§6).
	ReplyPort = 6666

	maxPacketSize = 4096
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config is the subset of the running configuration replied to
// `/smplr/get_config` (§4.15).
type Config struct {
	AudioRoot string   `json:"audio_root"`
	Banks     []string `json:"banks"`
}

// Bridge owns the inbound OSC socket and the reply client, and forwards
// decoded track-parameter messages to emit. The go-osc Server/Dispatcher
// pair doesn't surface the sender's address to handlers, so the socket is
// read directly with net.ListenUDP — the only point where this package
// steps outside the teacher's go-osc usage, for the one thing it can't do
// (§4.15's "remember sender addr").
type Bridge struct {
	conn   *net.UDPConn
	config Config

	mu         sync.Mutex
	client     *goosc.Client
	remoteHost string
}

// New returns a Bridge configured to reply with cfg's contents on
// `/smplr/get_config`.
func New(cfg Config) *Bridge {
	return &Bridge{config: cfg, remoteHost: "localhost"}
}

// ListenAndServe opens the inbound OSC socket and blocks handling packets
// until it is closed (§5 OSC thread). emit receives decoded track-parameter
// ControlMessages (typically control.Hub.TrySendOSC).
func (b *Bridge) ListenAndServe(emit func(control.ControlMessage) bool) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", ListenPort))
	if err != nil {
		return fmt.Errorf("osc: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("osc: listen: %w", err)
	}
	b.conn = conn

	buf := make([]byte, maxPacketSize)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		pkt, err := goosc.ParsePacket(string(buf[:n]))
		if err != nil {
			log.Printf("osc: unparsable packet from %s: %v", remote, err)
			continue
		}
		b.dispatch(pkt, remote, emit)
	}
}

// Close releases the inbound socket.
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

func (b *Bridge) dispatch(pkt goosc.Packet, remote *net.UDPAddr, emit func(control.ControlMessage) bool) {
	msg, ok := pkt.(*goosc.Message)
	if !ok {
		return
	}
	switch msg.Address {
	case "/smplr/ping":
		b.handlePing(msg, remote)
	case "/smplr/get_config":
		b.handleGetConfig()
	case "/smplr/track/volume":
		b.handleTrackParam(msg, control.KindTrackVolume, emit)
	case "/smplr/track/pan":
		b.handleTrackParam(msg, control.KindTrackPan, emit)
		// UnknownOSCAddress: ignored, logged at debug (§7) — omitted here to
		// avoid a debug-log dependency; unmatched addresses fall through.
	}
}

func (b *Bridge) replyClient() *goosc.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		b.client = goosc.NewClient(b.remoteHost, ReplyPort)
	}
	return b.client
}

func (b *Bridge) rememberSender(remote *net.UDPAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	host := remote.IP.String()
	if host != b.remoteHost {
		b.remoteHost = host
		b.client = nil
	}
}

// handlePing remembers the sender and replies with /smplr/ping_back
// carrying the same nonce (§4.15).
func (b *Bridge) handlePing(msg *goosc.Message, remote *net.UDPAddr) {
	if len(msg.Arguments) < 1 {
		return
	}
	nonce, ok := msg.Arguments[0].(int32)
	if !ok {
		return
	}
	b.rememberSender(remote)
	reply := goosc.NewMessage("/smplr/ping_back")
	reply.Append(nonce)
	b.send(reply)
}

// handleGetConfig replies with the running config JSON-encoded (§4.15).
func (b *Bridge) handleGetConfig() {
	payload, err := json.Marshal(b.config)
	if err != nil {
		log.Printf("osc: marshal config: %v", err)
		return
	}
	reply := goosc.NewMessage("/smplr/set_config")
	reply.Append(string(payload))
	b.send(reply)
}

// handleTrackParam decodes int:track_idx, float:val and emits a
// ControlMessage of kind (§4.15).
func (b *Bridge) handleTrackParam(msg *goosc.Message, kind control.Kind, emit func(control.ControlMessage) bool) {
	if len(msg.Arguments) < 2 {
		return
	}
	trackIdx, ok1 := msg.Arguments[0].(int32)
	val, ok2 := msg.Arguments[1].(float32)
	if !ok1 || !ok2 {
		return
	}
	emit(control.ControlMessage{Kind: kind, TrackNum: int(trackIdx), Val: val})
}

func (b *Bridge) send(msg *goosc.Message) {
	client := b.replyClient()
	if err := client.Send(msg); err != nil {
		log.Printf("osc: send reply: %v", err)
	}
}
