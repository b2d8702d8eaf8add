// Package audio turns short musician clips into fixed-length timbral feature vectors.
package audio

import (
	"errors"
	"math"
)

// Feature vector layout.
const (
	NumMFCC      = 20
	NumChroma    = 12
	FeatureDims  = 2*NumMFCC + 4 + NumChroma + 1
	DefaultTempo = 120.0

	rolloffPercent = 0.85
	topDB          = 80.0
	minTempo       = 30.0
	maxTempo       = 300.0
)

var ErrEmptyAudio = errors.New("empty audio")

// Extractor computes feature vectors for one sample rate. It is safe for concurrent
// use once built.
type Extractor struct {
	sampleRate int
	window     []float64
	melBank    [][]float64
	freqs      []float64
	pitchClass []int // -1 for bins outside the musical range
}

func NewExtractor(sampleRate int) *Extractor {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	freqs := BinFrequencies(sampleRate, WindowSize)
	pc := make([]int, len(freqs))
	for k, f := range freqs {
		pc[k] = pitchClass(f)
	}
	return &Extractor{
		sampleRate: sampleRate,
		window:     Hann(WindowSize),
		melBank:    MelFilterbank(sampleRate, WindowSize, NumMels),
		freqs:      freqs,
		pitchClass: pc,
	}
}

// pitchClass maps a frequency to 0..11 with C = 0 and A = 9.
func pitchClass(f float64) int {
	if f < 27.5 || f > 4200 {
		return -1
	}
	n := int(math.Round(12*math.Log2(f/440))) + 9
	return ((n % 12) + 12) % 12
}

// Extract returns the FeatureDims-long vector:
// MFCC means, MFCC standard deviations, spectral centroid mean and std, spectral
// rolloff mean and std, chroma means, tempo in BPM.
func (e *Extractor) Extract(samples []float64, sampleRate int) ([]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	if sampleRate != e.sampleRate {
		return nil, errors.New("sample rate does not match extractor")
	}

	mag, err := STFT(samples, WindowSize, HopSize, e.window)
	if err != nil {
		return nil, err
	}

	melDB := e.melDB(mag)

	out := make([]float64, 0, FeatureDims)

	mfcc := make([][]float64, len(melDB))
	for t, frame := range melDB {
		mfcc[t] = dctOrtho(frame, NumMFCC)
	}
	means, stds := columnStats(mfcc, NumMFCC)
	out = append(out, means...)
	out = append(out, stds...)

	centroids := make([]float64, len(mag))
	rolloffs := make([]float64, len(mag))
	for t, frame := range mag {
		centroids[t], rolloffs[t] = e.centroidRolloff(frame)
	}
	m, s := meanStd(centroids)
	out = append(out, m, s)
	m, s = meanStd(rolloffs)
	out = append(out, m, s)

	out = append(out, e.chroma(mag)...)
	out = append(out, e.tempo(melDB))

	return out, nil
}

// melDB is the log-power mel spectrogram, floored at topDB below its peak.
func (e *Extractor) melDB(mag [][]float64) [][]float64 {
	out := make([][]float64, len(mag))
	peak := math.Inf(-1)
	for t, frame := range mag {
		row := make([]float64, len(e.melBank))
		for m, filter := range e.melBank {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * frame[k] * frame[k]
				}
			}
			db := 10 * math.Log10(math.Max(sum, 1e-10))
			row[m] = db
			if db > peak {
				peak = db
			}
		}
		out[t] = row
	}
	floor := peak - topDB
	for _, row := range out {
		for m, v := range row {
			if v < floor {
				row[m] = floor
			}
		}
	}
	return out
}

// dctOrtho is the orthonormal DCT-II, keeping the first n coefficients.
func dctOrtho(x []float64, n int) []float64 {
	size := float64(len(x))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k, v := range x {
			sum += v * math.Cos(math.Pi*float64(i)*(2*float64(k)+1)/(2*size))
		}
		scale := math.Sqrt(2 / size)
		if i == 0 {
			scale = math.Sqrt(1 / size)
		}
		out[i] = sum * scale
	}
	return out
}

func (e *Extractor) centroidRolloff(frame []float64) (float64, float64) {
	var total, weighted float64
	for k, v := range frame {
		total += v
		weighted += v * e.freqs[k]
	}
	if total == 0 {
		return 0, 0
	}

	threshold := rolloffPercent * total
	rolloff := e.freqs[len(e.freqs)-1]
	var cum float64
	for k, v := range frame {
		cum += v
		if cum >= threshold {
			rolloff = e.freqs[k]
			break
		}
	}
	return weighted / total, rolloff
}

// chroma averages per-frame pitch-class energy, each frame scaled so its loudest
// class is 1.
func (e *Extractor) chroma(mag [][]float64) []float64 {
	out := make([]float64, NumChroma)
	if len(mag) == 0 {
		return out
	}
	var frame [NumChroma]float64
	for _, spec := range mag {
		frame = [NumChroma]float64{}
		for k, v := range spec {
			if pc := e.pitchClass[k]; pc >= 0 {
				frame[pc] += v * v
			}
		}
		peak := 0.0
		for _, v := range frame {
			peak = math.Max(peak, v)
		}
		if peak == 0 {
			continue
		}
		for i, v := range frame {
			out[i] += v / peak
		}
	}
	for i := range out {
		out[i] /= float64(len(mag))
	}
	return out
}

// tempo picks the onset-envelope autocorrelation lag in 30..300 BPM, weighted towards
// 120 BPM. Clips without a usable rhythm get DefaultTempo.
func (e *Extractor) tempo(melDB [][]float64) float64 {
	if len(melDB) < 3 {
		return DefaultTempo
	}

	onset := make([]float64, len(melDB))
	for t := 1; t < len(melDB); t++ {
		var sum float64
		for m, v := range melDB[t] {
			if d := v - melDB[t-1][m]; d > 0 {
				sum += d
			}
		}
		onset[t] = sum / float64(len(melDB[t]))
	}
	mean, _ := meanStd(onset)
	for i := range onset {
		onset[i] -= mean
	}

	frameRate := float64(e.sampleRate) / HopSize
	minLag := int(math.Ceil(60 * frameRate / maxTempo))
	maxLag := int(math.Floor(60 * frameRate / minTempo))
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}

	best, bestLag := 0.0, 0
	for lag := minLag; lag <= maxLag; lag++ {
		var ac float64
		for t := 0; t+lag < len(onset); t++ {
			ac += onset[t] * onset[t+lag]
		}
		bpm := 60 * frameRate / float64(lag)
		prior := math.Exp(-0.5 * math.Pow(math.Log2(bpm/DefaultTempo), 2))
		if score := ac * prior; score > best {
			best, bestLag = score, lag
		}
	}
	if bestLag == 0 {
		return DefaultTempo
	}
	return 60 * frameRate / float64(bestLag)
}

func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var sq float64
	for _, x := range v {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(v)))
}

func columnStats(rows [][]float64, cols int) ([]float64, []float64) {
	means := make([]float64, cols)
	stds := make([]float64, cols)
	col := make([]float64, len(rows))
	for c := 0; c < cols; c++ {
		for r := range rows {
			col[r] = rows[r][c]
		}
		means[c], stds[c] = meanStd(col)
	}
	return means, stds
}
