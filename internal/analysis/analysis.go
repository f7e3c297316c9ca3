// Package analysis derives tempo, beat count, and slice-position tables
// from a decoded audio phrase and its source file name (§4.1, §4.0).
package analysis

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/schollz/smplr/internal/smartbuf"
)

const sampleRate = 44100.0

var (
	reBeats = regexp.MustCompile(`(\d+)beats`)
	reBPM   = regexp.MustCompile(`(\d+)bpm`)
)

// Result is the output of analyzing a loaded phrase (§4.1).
type Result struct {
	OriginalTempo float64
	NumBeats      int
	Positions     map[smartbuf.PositionsMode][]int
}

// Analyze derives tempo, beat count, and all five positions tables for
// frames decoded from fileName (§4.1, §4.2).
func Analyze(fileName string, frames []smartbuf.Frame) Result {
	n := len(frames)
	durationSeconds := float64(n) / sampleRate

	tempo, numBeats, ok := parseFileName(fileName, durationSeconds)
	if !ok {
		mono := downmix(frames)
		tempo = estimateTempo(mono)
		numBeats = int(math.Round(durationSeconds / (60.0 / tempo)))
		if numBeats < 1 {
			numBeats = 1
		}
	}

	onsets := detectOnsets(downmix(frames), n)
	if len(onsets) < 3 {
		onsets = barDivision(n, numBeats, 8)
	}
	quantized := quantizeOnsets(onsets, n, numBeats)

	positions := map[smartbuf.PositionsMode][]int{
		smartbuf.Onset:          onsets,
		smartbuf.QuantizedOnset: quantized,
		smartbuf.Bar4:           barDivision(n, numBeats, 4),
		smartbuf.Bar8:           barDivision(n, numBeats, 8),
		smartbuf.Bar16:          barDivision(n, numBeats, 16),
	}

	return Result{OriginalTempo: tempo, NumBeats: numBeats, Positions: positions}
}

// parseFileName implements the `<name>_<N>(bpm|beats).wav` convention
// (§4.1, §6).
func parseFileName(name string, durationSeconds float64) (tempo float64, numBeats int, ok bool) {
	_, fname := filepath.Split(name)
	fname = strings.ToLower(fname)

	if m := reBeats.FindStringSubmatch(fname); len(m) == 2 {
		beats, err := strconv.ParseFloat(m[1], 64)
		if err == nil && beats > 0 {
			tempo = 60.0 / (durationSeconds / beats)
			return tempo, int(beats), true
		}
	}
	if m := reBPM.FindStringSubmatch(fname); len(m) == 2 {
		bpm, err := strconv.ParseFloat(m[1], 64)
		if err == nil && bpm > 0 {
			nb := int(math.Round(durationSeconds / (60.0 / bpm)))
			if nb < 1 {
				nb = 1
			}
			return bpm, nb, true
		}
	}
	return 0, 0, false
}

func downmix(frames []smartbuf.Frame) []float64 {
	mono := make([]float64, len(frames))
	for i, f := range frames {
		mono[i] = (float64(f.L) + float64(f.R)) / 2.0
	}
	return mono
}

// estimateTempo runs an FFT-based tempo estimator over 2048-sample analysis
// windows advanced by a 512-sample hop (so consecutive windows overlap) and
// clamps into the plausible dance-tempo range (§4.1).
func estimateTempo(mono []float64) float64 {
	const window = 2048
	const hop = 512

	flux := spectralFlux(mono, window, hop)
	tempo := tempoFromFlux(flux, hop)

	for tempo < 80 && tempo > 0 {
		tempo *= 2
	}
	for tempo > 190 {
		tempo /= 2
	}
	if tempo <= 0 {
		tempo = 120
	}
	return tempo
}

// spectralFlux computes the positive spectral difference between
// consecutive analysis windows, a proxy for onset/beat strength.
func spectralFlux(mono []float64, window, hop int) []float64 {
	if len(mono) < window {
		return nil
	}
	fft := fourier.NewFFT(window)
	analysisSize := window/2 + 1
	prevMag := make([]float64, analysisSize)
	curMag := make([]float64, analysisSize)

	var flux []float64
	buf := make([]float64, window)
	for start := 0; start+window <= len(mono); start += hop {
		copy(buf, mono[start:start+window])
		coeffs := fft.Coefficients(nil, buf)
		for i, c := range coeffs {
			curMag[i] = math.Hypot(real(c), imag(c))
		}
		sum := 0.0
		for i := range curMag {
			d := curMag[i] - prevMag[i]
			if d > 0 {
				sum += d
			}
		}
		flux = append(flux, sum)
		copy(prevMag, curMag)
	}
	return flux
}

// tempoFromFlux finds the dominant inter-peak spacing in the flux curve and
// converts it to BPM.
func tempoFromFlux(flux []float64, hop int) float64 {
	if len(flux) < 2 {
		return 120
	}
	mean := 0.0
	for _, v := range flux {
		mean += v
	}
	mean /= float64(len(flux))

	var peakIdx []int
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] > mean && flux[i] > flux[i-1] && flux[i] >= flux[i+1] {
			peakIdx = append(peakIdx, i)
		}
	}
	if len(peakIdx) < 2 {
		return 120
	}

	var intervals []float64
	for i := 1; i < len(peakIdx); i++ {
		intervals = append(intervals, float64(peakIdx[i]-peakIdx[i-1]))
	}
	avg := 0.0
	for _, v := range intervals {
		avg += v
	}
	avg /= float64(len(intervals))

	secondsPerBeat := (avg * float64(hop)) / sampleRate
	if secondsPerBeat <= 0 {
		return 120
	}
	return 60.0 / secondsPerBeat
}

// detectOnsets runs a spectral-flux onset detector, thresholded and
// inter-onset-gated, then brackets the result with 0 and n (§4.1).
func detectOnsets(mono []float64, n int) []int {
	const window = 2048
	const hop = 512
	const threshold = 0.3
	const silenceDB = -30.0
	const minInterOnsetSeconds = 0.02

	flux := spectralFlux(mono, window, hop)
	if len(flux) == 0 {
		return []int{0, n}
	}

	maxFlux := 0.0
	for _, v := range flux {
		if v > maxFlux {
			maxFlux = v
		}
	}
	if maxFlux == 0 {
		return []int{0, n}
	}

	minInterOnsetHops := int(minInterOnsetSeconds * sampleRate / float64(hop))
	silenceLinear := math.Pow(10, silenceDB/20)

	positions := []int{0}
	lastOnsetHop := -minInterOnsetHops - 1
	for i, v := range flux {
		if v/maxFlux < threshold {
			continue
		}
		start := i * hop
		if start+window > len(mono) {
			continue
		}
		rms := windowRMS(mono[start : start+window])
		if rms < silenceLinear {
			continue
		}
		if i-lastOnsetHop < minInterOnsetHops {
			continue
		}
		frameIdx := start
		if frameIdx > 0 && frameIdx < n {
			positions = append(positions, frameIdx)
			lastOnsetHop = i
		}
	}
	positions = append(positions, n)
	return dedupAscending(positions)
}

func windowRMS(samples []float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func dedupAscending(positions []int) []int {
	out := positions[:0:0]
	for i, p := range positions {
		if i > 0 && p <= out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// quantizeOnsets rounds each onset to the nearest multiple of
// frames.len()/(16*num_beats) (§4.1).
func quantizeOnsets(onsets []int, n, numBeats int) []int {
	if numBeats <= 0 {
		numBeats = 1
	}
	grid := n / (16 * numBeats)
	if grid <= 0 {
		grid = 1
	}
	out := make([]int, len(onsets))
	for i, p := range onsets {
		q := int(math.Round(float64(p)/float64(grid))) * grid
		if q > n {
			q = n
		}
		if q < 0 {
			q = 0
		}
		out[i] = q
	}
	out[0] = 0
	out[len(out)-1] = n
	return dedupAscending(out)
}

// barDivision returns num_beats/4*div equally spaced positions plus the
// terminal index (§4.1).
func barDivision(n, numBeats, div int) []int {
	count := (numBeats * div) / 4
	if count < 1 {
		count = 1
	}
	positions := equalDivision(n, count)
	return positions
}

func equalDivision(n, count int) []int {
	if count < 1 {
		count = 1
	}
	positions := make([]int, 0, count+1)
	for i := 0; i < count; i++ {
		positions = append(positions, (i*n)/count)
	}
	positions = append(positions, n)
	return dedupAscending(positions)
}
