package audio

import (
	"context"
	"fmt"
	"os"
)

// Pipeline prepares a clip and extracts its feature vector.
type Pipeline struct {
	Extractor *Extractor
	Clip      ClipConfig
	// Normalize runs clips through ffprobe/ffmpeg first. Without it every clip must
	// already be a WAV at the extractor's sample rate.
	Normalize bool
	TempDir   string
}

func NewPipeline(clip ClipConfig, normalize bool) *Pipeline {
	if clip.SampleRate == 0 {
		clip.SampleRate = DefaultSampleRate
	}
	return &Pipeline{
		Extractor: NewExtractor(clip.SampleRate),
		Clip:      clip,
		Normalize: normalize,
		TempDir:   os.TempDir(),
	}
}

// Process returns the feature vector of the clip at path.
func (p *Pipeline) Process(ctx context.Context, path string) ([]float64, error) {
	wavPath := path

	if p.Normalize {
		info, err := ProbeClip(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", path, err)
		}
		trimmed := p.Clip.StartSec > 0 || p.Clip.DurationSec > 0
		if trimmed || info.NeedsNormalizing(p.Clip.SampleRate) {
			dir, err := os.MkdirTemp(p.TempDir, "collabmatch-clip-*")
			if err != nil {
				return nil, err
			}
			defer os.RemoveAll(dir)

			if wavPath, err = NormalizeClip(ctx, path, dir, p.Clip); err != nil {
				return nil, fmt.Errorf("normalizing %s: %w", path, err)
			}
		}
	}

	samples, sr, err := ReadWav(wavPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", wavPath, err)
	}
	if sr != p.Clip.SampleRate {
		return nil, fmt.Errorf("%s is sampled at %d Hz, want %d (enable normalization)", path, sr, p.Clip.SampleRate)
	}
	return p.Extractor.Extract(samples, sr)
}
