package audio

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	WindowSize = 2048
	HopSize    = 512
	NumMels    = 128
)

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// MagnitudeSpectrum keeps the non-negative frequency bins 0..n/2 inclusive.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// centerPad pads samples by half a window on both sides, reflecting the signal when it
// is long enough and zero-filling otherwise, so frame t is centred on sample t*hop.
func centerPad(samples []float64, windowSize int) []float64 {
	pad := windowSize / 2
	out := make([]float64, len(samples)+2*pad)
	copy(out[pad:], samples)
	if len(samples) > pad {
		for i := 1; i <= pad; i++ {
			out[pad-i] = samples[i]
			out[pad+len(samples)-1+i] = samples[len(samples)-1-i]
		}
	}
	return out
}

// STFT returns the magnitude spectrogram, one row per frame.
func STFT(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) == 0 {
		return nil, errors.New("samples cannot be empty")
	}

	padded := centerPad(samples, windowSize)
	spectrogram := make([][]float64, 0, 1+(len(padded)-windowSize)/hopSize)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(padded); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = padded[start+i] * window[i]
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// BinFrequencies returns the centre frequency of each of the n/2+1 bins.
func BinFrequencies(sampleRate, windowSize int) []float64 {
	f := make([]float64, windowSize/2+1)
	for i := range f {
		f[i] = float64(i) * float64(sampleRate) / float64(windowSize)
	}
	return f
}

const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27

// HzToMel uses the Slaney scale: linear below 1 kHz, logarithmic above.
func HzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSp
	}
	return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
}

func MelToHz(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFSp
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
}

// MelFilterbank builds nMels area-normalized triangular filters spanning 0..sr/2.
func MelFilterbank(sampleRate, windowSize, nMels int) [][]float64 {
	freqs := BinFrequencies(sampleRate, windowSize)
	maxMel := HzToMel(float64(sampleRate) / 2)

	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = MelToHz(maxMel * float64(i) / float64(nMels+1))
	}

	bank := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		lo, mid, hi := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (hi - lo)
		row := make([]float64, len(freqs))
		for k, f := range freqs {
			lower := (f - lo) / (mid - lo)
			upper := (hi - f) / (hi - mid)
			if w := math.Min(lower, upper); w > 0 {
				row[k] = w * norm
			}
		}
		bank[m] = row
	}
	return bank
}
