// Package device bridges the mixer's block loop to the sound card: a
// stereo float32 output stream at 44.1 kHz with a fixed 128-frame callback
// buffer (§4.16, §6). Grounded on
// chriskillpack-modplayer/cmd/modplay/main.go's portaudio wiring — the
// teacher itself has no audio-device code.
package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/schollz/smplr/internal/smartbuf"
)

// SampleRate is the engine's fixed output rate (§1 Non-goals).
const SampleRate = 44100.0

// BlockSize is the fixed callback buffer size, in frames (§6).
const BlockSize = 128

// ErrUnsupportedSampleRate is returned when the default output device's
// native rate isn't 44.1 kHz (§7).
var ErrUnsupportedSampleRate = fmt.Errorf("device: unsupported sample rate")

// Source is anything that can fill one block of stereo output; satisfied
// by mixer.Mixer.
type Source interface {
	NextBlock(out []smartbuf.Frame)
}

// Stream owns the open PortAudio stream and the scratch block buffer used
// to bridge its non-interleaved frame model into PortAudio's interleaved
// float32 callback.
type Stream struct {
	pa     *portaudio.Stream
	source Source
	block  []smartbuf.Frame
}

// Open initializes PortAudio and opens the default stereo output stream.
// If the device's native sample rate isn't 44.1 kHz the stream is not
// opened and ErrUnsupportedSampleRate is returned (§6, §7).
func Open(source Source) (*Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: initialize: %w", err)
	}

	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: query default output device: %w", err)
	}
	if int(info.DefaultSampleRate) != SampleRate {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: device default is %.0f Hz", ErrUnsupportedSampleRate, info.DefaultSampleRate)
	}

	s := &Stream{source: source, block: make([]smartbuf.Frame, BlockSize)}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BlockSize, s.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: open stream: %w", err)
	}
	s.pa = stream
	return s, nil
}

// callback fills interleaved stereo `out` by pulling one block from the
// mixer.
func (s *Stream) callback(out []float32) {
	if len(s.block) != len(out)/2 {
		s.block = make([]smartbuf.Frame, len(out)/2)
	}
	s.source.NextBlock(s.block)
	for i, f := range s.block {
		out[2*i] = f.L
		out[2*i+1] = f.R
	}
}

// Start begins streaming.
func (s *Stream) Start() error {
	return s.pa.Start()
}

// Stop halts streaming; the stream can be restarted.
func (s *Stream) Stop() error {
	return s.pa.Stop()
}

// Close stops the stream, closes it, and terminates PortAudio (cooperative
// shutdown, §5).
func (s *Stream) Close() error {
	_ = s.pa.Stop()
	err := s.pa.Close()
	portaudio.Terminate()
	return err
}
