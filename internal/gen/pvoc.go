package gen

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/schollz/smplr/internal/control"
	"github.com/schollz/smplr/internal/smartbuf"
)

const (
	pvocWindowSize = 512
	pvocHopSize    = 32
	pvocGain       = 0.475
)

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// unwrapToPi wraps phase into (-pi, pi], matching §4.6.1's unwrap_to_pi.
func unwrapToPi(phase float64) float64 {
	return phase + 2*math.Pi*(1+math.Floor(-(phase+math.Pi)/(2*math.Pi)))
}

// pvocUnit is a single phase-vocoder analysis/resynthesis unit: FFT window
// 512, hop 32, analysis size 257 (§4.6). Its scratch buffers are allocated
// once at construction and reused for every hop.
type pvocUnit struct {
	hopSize      int
	windowSize   int
	analysisSize int
	fft          *fourier.FFT
	window       []float64

	analysisRing []float64
	synthRing    []float64

	pnorm, pphas, phasAcc []float64
	elapsedHops           int
	interpRead            float64
	interpBlock           int

	currNorm, currPhase []float64
	newNorm, newPhase   []float64
	coeffScratch        []complex128
	timeScratch         []float64
	hopScratch          []float64

	outQueue []float64
}

func newPVOCUnit(windowSize, hopSize int) *pvocUnit {
	analysisSize := windowSize/2 + 1
	u := &pvocUnit{
		hopSize:      hopSize,
		windowSize:   windowSize,
		analysisSize: analysisSize,
		fft:          fourier.NewFFT(windowSize),
		window:       hannWindow(windowSize),
		analysisRing: make([]float64, windowSize),
		synthRing:    make([]float64, windowSize),
		pnorm:        make([]float64, analysisSize),
		pphas:        make([]float64, analysisSize),
		phasAcc:      make([]float64, analysisSize),
		currNorm:     make([]float64, analysisSize),
		currPhase:    make([]float64, analysisSize),
		newNorm:      make([]float64, analysisSize),
		newPhase:     make([]float64, analysisSize),
		coeffScratch: make([]complex128, analysisSize),
		timeScratch:  make([]float64, windowSize),
		hopScratch:   make([]float64, hopSize),
		outQueue:     make([]float64, 0, 1024),
	}
	return u
}

// reset rewinds the interpolation state (§4.6.2). Pending queued output is
// left untouched; it fades out through the §4.8 crossfade.
func (u *pvocUnit) reset() {
	u.elapsedHops = 1
	u.interpBlock = 0
	u.interpRead = 0
}

func (u *pvocUnit) analyze(hop []float64) {
	copy(u.analysisRing, u.analysisRing[u.hopSize:])
	copy(u.analysisRing[u.windowSize-u.hopSize:], hop)
	for i := 0; i < u.windowSize; i++ {
		u.timeScratch[i] = u.analysisRing[i] * u.window[i]
	}
	u.fft.Coefficients(u.coeffScratch, u.timeScratch)
	for i := 0; i < u.analysisSize; i++ {
		u.currNorm[i] = cmplx.Abs(u.coeffScratch[i])
		u.currPhase[i] = cmplx.Phase(u.coeffScratch[i])
	}
}

// synthesize inverse-FFTs (newNorm, newPhase) and overlap-adds into
// synthRing, appending the next ready hop_size samples to outQueue.
func (u *pvocUnit) synthesize() {
	for i := 0; i < u.analysisSize; i++ {
		u.coeffScratch[i] = cmplx.Rect(u.newNorm[i], u.newPhase[i])
	}
	u.fft.Sequence(u.timeScratch, u.coeffScratch)

	const overlap = float64(pvocWindowSize) / (2 * float64(pvocHopSize))
	for i := 0; i < u.windowSize; i++ {
		u.synthRing[i] += u.timeScratch[i] * u.window[i] / overlap
	}
	copy(u.hopScratch, u.synthRing[:u.hopSize])
	copy(u.synthRing, u.synthRing[u.hopSize:])
	for i := u.windowSize - u.hopSize; i < u.windowSize; i++ {
		u.synthRing[i] = 0
	}
	for _, s := range u.hopScratch {
		u.outQueue = append(u.outQueue, s)
	}
}

// processBlock feeds one hop of mono input through the unit, per §4.6.1
// steps 1a-1f.
func (u *pvocUnit) processBlock(hop []float64, playbackRate float64) {
	u.analyze(hop)

	if u.elapsedHops == 0 {
		copy(u.pnorm, u.currNorm)
		copy(u.pphas, u.currPhase)
		for i := 0; i < u.hopSize; i++ {
			u.outQueue = append(u.outQueue, 0)
		}
		u.elapsedHops++
		return
	}

	if u.elapsedHops == 1 {
		copy(u.phasAcc, u.pphas)
	}

	phasAdvBase := math.Pi * float64(u.hopSize)
	for u.interpRead < float64(u.elapsedHops) {
		frac := 1.0 - math.Mod(u.interpRead, 1.0)
		for i := range u.currNorm {
			u.newNorm[i] = frac*u.pnorm[i] + (1-frac)*u.currNorm[i]
		}
		copy(u.newPhase, u.phasAcc)

		u.synthesize()

		for i := range u.phasAcc {
			phasAdv := (float64(i) / (float64(u.analysisSize) - 1)) * phasAdvBase
			dphas := unwrapToPi(u.currPhase[i] - u.pphas[i] - phasAdv)
			u.phasAcc[i] += phasAdv + dphas
		}

		u.interpBlock++
		u.interpRead = float64(u.interpBlock) * playbackRate
	}

	copy(u.pnorm, u.currNorm)
	copy(u.pphas, u.currPhase)
	u.elapsedHops++
}

// PhaseVocoderGen is the FFT-based time-stretch follower (§4.6).
type PhaseVocoderGen struct {
	Base     *SampleGen
	unit     *pvocUnit
	inputHop []float64
}

// NewPhaseVocoderGen returns a new PhaseVocoderGen.
func NewPhaseVocoderGen() *PhaseVocoderGen {
	return &PhaseVocoderGen{
		Base:     NewSampleGen(),
		unit:     newPVOCUnit(pvocWindowSize, pvocHopSize),
		inputHop: make([]float64, pvocHopSize),
	}
}

// NextBlock fills out with time-stretched output, pulling mono hops from the
// shared click-free sync primitive (§4.6.1).
func (pv *PhaseVocoderGen) NextBlock(out []smartbuf.Frame) {
	if !pv.Base.Playing {
		for i := range out {
			out[i] = smartbuf.Equilibrium
		}
		return
	}

	for len(pv.unit.outQueue) < len(out) {
		for i := 0; i < pvocHopSize; i++ {
			f := pv.Base.SyncGetNextFrame()
			pv.inputHop[i] = float64(f.L)
		}
		pv.unit.processBlock(pv.inputHop, pv.Base.PlaybackRate)
	}

	for i := range out {
		s := float32(pv.unit.outQueue[0] * pvocGain)
		pv.unit.outQueue = pv.unit.outQueue[1:]
		out[i] = smartbuf.Frame{L: s, R: s}
	}
}

// LoadBuffer copies smartbuf into the generator's local buffer.
func (pv *PhaseVocoderGen) LoadBuffer(buf *smartbuf.SmartBuffer) {
	pv.Base.SmartBuf.CopyFrom(buf)
}

// Sync recomputes the playback rate; on a rate change or beat crossing it
// snaps the frame index and resets the PVOC unit (§4.6.2).
func (pv *PhaseVocoderGen) Sync(globalTempo uint64, ticks uint64) {
	pv.Base.LastTicks = ticks
	originalTempo := pv.Base.SmartBuf.OriginalTempo
	clockFrames := pv.Base.ClockFrames(ticks)
	isBeat := pv.Base.IsBeatFrame(ticks)
	newRate := float64(globalTempo) / originalTempo

	rateChanged := pv.Base.PlaybackRate != newRate
	if rateChanged {
		pv.Base.PlaybackRate = newRate
	}
	if rateChanged || isBeat {
		pv.Base.SyncSetFrameIndex(clockFrames)
		pv.unit.reset()
	}
	pv.Base.ApplyLoopDivOnBeat(ticks)
}

// Play unmutes the generator if a buffer is loaded.
func (pv *PhaseVocoderGen) Play() {
	if len(pv.Base.SmartBuf.Frames) > 0 {
		pv.Base.Playing = true
	}
}

// Stop resets and mutes the generator.
func (pv *PhaseVocoderGen) Stop() {
	pv.Reset()
	pv.Base.Playing = false
}

// SetPlaybackMult sets the playback-rate multiplier.
func (pv *PhaseVocoderGen) SetPlaybackMult(mult uint64) {
	pv.Base.PlaybackMult = mult
}

// SetLoopDiv schedules a loop-div change for the next beat boundary.
func (pv *PhaseVocoderGen) SetLoopDiv(div uint64) {
	pv.Base.NextLoopDiv = div
}

// Reset rewinds playback and the PVOC unit to their initial state.
func (pv *PhaseVocoderGen) Reset() {
	pv.Base.Reset()
	pv.unit.reset()
	pv.unit.outQueue = pv.unit.outQueue[:0]
}

// PushControlMessage is a no-op: PhaseVocoderGen has no transform queue.
func (pv *PhaseVocoderGen) PushControlMessage(control.SlicerTransform) {}
