// Package wavload decodes WAV files into SmartBuffers: PCM decode, per-
// channel peak normalization, and analysis (§4.2).
package wavload

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/schollz/smplr/internal/analysis"
	"github.com/schollz/smplr/internal/smartbuf"
)

// ErrUnreadablePath is returned when the file cannot be opened or is not a
// valid WAV container (§7).
var ErrUnreadablePath = fmt.Errorf("wavload: unreadable path")

// ErrUnsupportedBitDepth is returned for PCM bit depths other than 16/24/32
// (§7).
var ErrUnsupportedBitDepth = fmt.Errorf("wavload: unsupported bit depth")

// Load decodes path into a fully-analyzed SmartBuffer (§4.2).
func Load(path string) (*smartbuf.SmartBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePath, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, ErrUnreadablePath
	}
	d.ReadInfo()

	switch d.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePath, err)
	}

	frames := toStereoFrames(buf, int(d.BitDepth), int(d.NumChans))
	normalizePerChannel(frames)

	res := analysis.Analyze(path, frames)
	sb := &smartbuf.SmartBuffer{
		FileName:      path,
		Frames:        frames,
		OriginalTempo: res.OriginalTempo,
		NumBeats:      res.NumBeats,
		Positions:     res.Positions,
	}
	if err := sb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePath, err)
	}
	return sb, nil
}

func toStereoFrames(buf *audio.IntBuffer, bitDepth, numChans int) []smartbuf.Frame {
	if buf == nil || numChans == 0 {
		return nil
	}
	maxVal := float32(int(1) << (bitDepth - 1))
	n := len(buf.Data) / numChans
	frames := make([]smartbuf.Frame, n)
	for i := 0; i < n; i++ {
		l := float32(buf.Data[i*numChans]) / maxVal
		r := l
		if numChans > 1 {
			r = float32(buf.Data[i*numChans+1]) / maxVal
		}
		frames[i] = smartbuf.Frame{L: l, R: r}
	}
	return frames
}

// normalizePerChannel divides each channel by its absolute peak (§4.2).
func normalizePerChannel(frames []smartbuf.Frame) {
	var peakL, peakR float32
	for _, f := range frames {
		if abs32(f.L) > peakL {
			peakL = abs32(f.L)
		}
		if abs32(f.R) > peakR {
			peakR = abs32(f.R)
		}
	}
	if peakL == 0 {
		peakL = 1
	}
	if peakR == 0 {
		peakR = 1
	}
	for i := range frames {
		frames[i].L /= peakL
		frames[i].R /= peakR
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
