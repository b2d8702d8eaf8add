package audio

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sine(freq float64, seconds float64, sr int) []float64 {
	n := int(seconds * float64(sr))
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func writeTestWav(t *testing.T, samples []float64, sr int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWav(path, samples, sr); err != nil {
		t.Fatalf("WriteWav: %v", err)
	}
	return path
}

func TestReadWavRoundTrip(t *testing.T) {
	in := sine(440, 0.5, DefaultSampleRate)
	path := writeTestWav(t, in, DefaultSampleRate)

	out, sr, err := ReadWav(path)
	if err != nil {
		t.Fatalf("ReadWav: %v", err)
	}
	if sr != DefaultSampleRate {
		t.Errorf("sample rate: got %d, want %d", sr, DefaultSampleRate)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(in[i]-out[i]) > 1e-3 {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestReadWavDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           []int{16000, -16000, 8000, 8000, 0, 16000},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, _, err := ReadWav(path)
	if err != nil {
		t.Fatalf("ReadWav: %v", err)
	}
	want := []float64{0, 8000.0 / 32768, 8000.0 / 32768}
	if len(out) != len(want) {
		t.Fatalf("got %d frames, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("frame %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestReadWavRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWav(path); err == nil {
		t.Error("ReadWav should fail on invalid file")
	}
}

func TestExtractSineTone(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)
	vec, err := e.Extract(sine(440, 2, DefaultSampleRate), DefaultSampleRate)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(vec) != FeatureDims || FeatureDims != 57 {
		t.Fatalf("got %d dims, want 57", len(vec))
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("dim %d is not finite: %v", i, v)
		}
	}

	centroid := vec[2*NumMFCC]
	if math.Abs(centroid-440) > 30 {
		t.Errorf("centroid mean: got %.1f Hz, want about 440", centroid)
	}

	chroma := vec[2*NumMFCC+4 : 2*NumMFCC+4+NumChroma]
	best := 0
	for i, v := range chroma {
		if v > chroma[best] {
			best = i
		}
	}
	if best != 9 {
		t.Errorf("dominant chroma: got %d, want 9 (A)", best)
	}

	tempo := vec[FeatureDims-1]
	if tempo < minTempo || tempo > maxTempo {
		t.Errorf("tempo %v outside [%v, %v]", tempo, minTempo, maxTempo)
	}
}

func TestExtractClickTrackTempo(t *testing.T) {
	sr := DefaultSampleRate
	samples := make([]float64, 8*sr)
	rng := rand.New(rand.NewSource(7))
	period := int(0.6 * float64(sr)) // 100 BPM
	for start := period / 2; start < len(samples); start += period {
		for j := 0; j < 200 && start+j < len(samples); j++ {
			samples[start+j] = 0.8 * math.Exp(-float64(j)/50) * (2*rng.Float64() - 1)
		}
	}

	vec, err := NewExtractor(sr).Extract(samples, sr)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if tempo := vec[FeatureDims-1]; math.Abs(tempo-100) > 6 {
		t.Errorf("tempo: got %.1f BPM, want about 100", tempo)
	}
}

func TestExtractSilenceAndEmpty(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)
	if _, err := e.Extract(nil, DefaultSampleRate); err != ErrEmptyAudio {
		t.Errorf("empty input: got %v, want ErrEmptyAudio", err)
	}

	vec, err := e.Extract(make([]float64, DefaultSampleRate), DefaultSampleRate)
	if err != nil {
		t.Fatalf("silence: %v", err)
	}
	if vec[FeatureDims-1] != DefaultTempo {
		t.Errorf("silence tempo: got %v, want default %v", vec[FeatureDims-1], DefaultTempo)
	}

	if _, err := e.Extract([]float64{0.1}, 44100); err == nil {
		t.Error("expected error for mismatched sample rate")
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	samples := sine(330, 1, DefaultSampleRate)
	e := NewExtractor(DefaultSampleRate)
	a, err := e.Extract(samples, DefaultSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(samples, DefaultSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("dim %d differs between runs", i)
		}
	}
}

func TestPitchClass(t *testing.T) {
	tests := map[float64]int{440: 9, 261.63: 0, 880: 9, 392: 7, 10: -1}
	for f, want := range tests {
		if got := pitchClass(f); got != want {
			t.Errorf("pitchClass(%v) = %d, want %d", f, got, want)
		}
	}
}

func TestMelScaleInverse(t *testing.T) {
	for _, hz := range []float64{0, 300, 999, 1000, 4000, 11025} {
		if got := MelToHz(HzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("MelToHz(HzToMel(%v)) = %v", hz, got)
		}
	}
}

func TestPipelineWithoutNormalization(t *testing.T) {
	path := writeTestWav(t, sine(440, 1, DefaultSampleRate), DefaultSampleRate)

	vec, err := NewPipeline(ClipConfig{}, false).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(vec) != FeatureDims {
		t.Errorf("got %d dims", len(vec))
	}

	other := writeTestWav(t, sine(440, 1, 8000), 8000)
	if _, err := NewPipeline(ClipConfig{}, false).Process(context.Background(), other); err == nil {
		t.Error("expected error for a clip at the wrong sample rate")
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio", "sample_rate": "44100", "channels": 2, "bits_per_sample": 16}
		],
		"format": {"filename": "/clips/u1_clip.mp3", "duration": "10.5", "format_name": "mp3"}
	}`)
	info, err := parseProbe("/clips/u1_clip.mp3", out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Filename != "u1_clip.mp3" || info.SampleRate != 44100 || info.Channels != 2 || info.DurationSec != 10.5 {
		t.Errorf("got %+v", info)
	}
	if !info.NeedsNormalizing(DefaultSampleRate) {
		t.Error("stereo mp3 should need normalizing")
	}

	if _, err := parseProbe("x", []byte(`{"streams": [], "format": {}}`)); err != ErrNoAudioStream {
		t.Errorf("got %v, want ErrNoAudioStream", err)
	}
}

func TestNormalizeClipWithFFmpeg(t *testing.T) {
	if !FFmpegAvailable() {
		t.Skip("ffmpeg not installed")
	}
	src := writeTestWav(t, sine(440, 3, 44100), 44100)

	out, err := NormalizeClip(context.Background(), src, t.TempDir(), ClipConfig{StartSec: 1, DurationSec: 1})
	if err != nil {
		t.Fatalf("NormalizeClip: %v", err)
	}
	samples, sr, err := ReadWav(out)
	if err != nil {
		t.Fatal(err)
	}
	if sr != DefaultSampleRate {
		t.Errorf("sample rate: got %d", sr)
	}
	if math.Abs(float64(len(samples))-float64(DefaultSampleRate)) > 0.05*DefaultSampleRate {
		t.Errorf("trimmed length: got %d samples, want about %d", len(samples), DefaultSampleRate)
	}
}
