// Command spectrogram renders a PNG spectrogram for every WAV clip in a directory so
// clips can be checked by eye before feature extraction.
package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/eligwz/spectrogram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/audio"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
)

type options struct {
	outputDir string
	width     int
	height    int
	workers   int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:          "spectrogram <clips-dir>",
		Short:        "Render PNG spectrograms for WAV clips",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := renderDir(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d spectrogram(s) into %s\n", n, opts.outputDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "spectrograms", "Directory for PNG files")
	cmd.Flags().IntVar(&opts.width, "width", 2048, "Image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 512, "Image height in pixels (frequency bins)")
	cmd.Flags().IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "Clips rendered in parallel")
	return cmd
}

// renderDir renders every .wav under dir. Unreadable clips are logged and skipped.
func renderDir(ctx context.Context, dir string, opts options) (int, error) {
	log := logger.GetLogger()
	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return 0, err
	}

	var clips []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
			clips = append(clips, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	done := make([]bool, len(clips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))
	for i, path := range clips {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := filepath.Join(opts.outputDir, filepath.Base(path)+".png")
			if err := render(path, out, opts.width, opts.height); err != nil {
				log.Warnf("Skipping %s: %v", path, err)
				return nil
			}
			log.Debugf("Saved spectrogram to %s", out)
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range done {
		if ok {
			n++
		}
	}
	return n, nil
}

// render draws a linear-magnitude FFT spectrogram of one clip on a black background.
func render(path, out string, width, height int) error {
	samples, sr, err := audio.ReadWav(path)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples")
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale.
	spectrogram.Drawfft(img, samples, uint32(sr), uint32(height), false, false, true, false)

	return spectrogram.SavePng(img, out)
}
