package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/CollabMatch/pkg/utils"
)

// DefaultSampleRate is the rate every clip is resampled to before feature extraction.
const DefaultSampleRate = 22050

type ClipConfig struct {
	SampleRate int
	// StartSec and DurationSec trim the clip; zero DurationSec keeps everything after StartSec.
	StartSec    float64
	DurationSec float64
	Timeout     time.Duration
}

// NormalizeClip converts inputPath to mono 16-bit PCM WAV at cfg.SampleRate inside
// outputDir and returns the new path. The output is written to a temp file first so a
// clip can be normalized in place.
func NormalizeClip(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ClipConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	args := []string{"-y", "-v", "quiet"}
	if cfg.StartSec > 0 {
		args = append(args, "-ss", strconv.FormatFloat(cfg.StartSec, 'f', -1, 64))
	}
	args = append(args, "-i", inputPath)
	if cfg.DurationSec > 0 {
		args = append(args, "-t", strconv.FormatFloat(cfg.DurationSec, 'f', -1, 64))
	}
	args = append(args,
		"-ac", "1", // mono
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// FFmpegAvailable reports whether both ffmpeg and ffprobe are on PATH.
func FFmpegAvailable() bool {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}
