// Package analyser turns a window of audio samples into a fixed-size byte
// spectrum with exponential smoothing and a decibel range, the same shape
// of data a browser AnalyserNode hands to its callers.
package analyser

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	DefaultBins      = 32
	DefaultSmoothing = 0.8
	MinDecibels      = -100.0
	MaxDecibels      = -30.0

	// MaxValue is the largest value FrequencyData can hold.
	MaxValue = 255
)

// Analyser holds the FFT workspace and smoothing state for one track.
// It is not safe for concurrent use.
type Analyser struct {
	bins      int
	fftSize   int
	smoothing float64

	fft      *fourier.FFT
	window   []float64
	input    []float64
	coeffs   []complex128
	smoothed []float64
	data     []uint8
}

// New creates an analyser with the given number of frequency bins. The FFT
// size is twice the bin count; bins must be a power of two.
func New(bins int) *Analyser {
	if bins <= 0 {
		bins = DefaultBins
	}
	size := bins * 2
	ones := make([]float64, size)
	for i := range ones {
		ones[i] = 1
	}
	return &Analyser{
		bins:      bins,
		fftSize:   size,
		smoothing: DefaultSmoothing,
		fft:       fourier.NewFFT(size),
		window:    window.Blackman(ones),
		input:     make([]float64, size),
		smoothed:  make([]float64, bins),
		data:      make([]uint8, bins),
	}
}

// Bins returns the number of frequency bins.
func (a *Analyser) Bins() int { return a.bins }

// FFTSize returns the number of samples consumed per Process call.
func (a *Analyser) FFTSize() int { return a.fftSize }

// SetSmoothing sets the time constant in [0,1).
func (a *Analyser) SetSmoothing(s float64) {
	a.smoothing = math.Max(0, math.Min(s, 0.999))
}

// Process analyses the most recent FFTSize samples. Shorter input is zero
// padded at the front.
func (a *Analyser) Process(samples []float32) {
	if len(samples) > a.fftSize {
		samples = samples[len(samples)-a.fftSize:]
	}
	pad := a.fftSize - len(samples)
	for i := range a.fftSize {
		var s float64
		if i >= pad {
			s = float64(samples[i-pad])
		}
		a.input[i] = s * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.input)

	scale := 1.0 / float64(a.fftSize)
	dbRange := MaxDecibels - MinDecibels
	for k := range a.bins {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag

		if a.smoothed[k] <= 0 {
			a.data[k] = 0
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(MaxValue / dbRange * (db - MinDecibels))
		switch {
		case v < 0:
			v = 0
		case v > MaxValue:
			v = MaxValue
		}
		a.data[k] = uint8(v)
	}
}

// FrequencyData returns the current byte spectrum. The slice is reused by
// the next Process call.
func (a *Analyser) FrequencyData() []uint8 {
	return a.data
}

// Frequency returns the byte value of one bin, or 0 out of range.
func (a *Analyser) Frequency(bin int) float64 {
	if bin < 0 || bin >= a.bins {
		return 0
	}
	return float64(a.data[bin])
}

// AverageFrequency returns the mean of the byte spectrum.
func (a *Analyser) AverageFrequency() float64 {
	var sum int
	for _, v := range a.data {
		sum += int(v)
	}
	return float64(sum) / float64(a.bins)
}

// Reset clears smoothing history.
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
		a.data[i] = 0
	}
}
