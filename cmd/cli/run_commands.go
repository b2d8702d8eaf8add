package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/CollabMatch/internal/tabular"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "run <entities.csv>",
		Short: "Run metadata, audio and consolidated ranking and write every table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.GetLogger()
			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			files, err := res.WriteFiles(ctx.cfg.OutputDir, ctx.cfg.TopK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Ranked %s users (%s with audio)\n",
				humanize.Comma(int64(len(res.Entities))), humanize.Comma(int64(len(res.Audio))))
			for _, p := range []string{files.MetadataCSV, files.MetadataJSON, files.AudioCSV, files.FinalCSV} {
				fmt.Fprintf(out, "   %s\n", p)
			}

			if sample < 0 {
				sample = ctx.cfg.Sample
			}
			printSamples(out, res.Final, sample)
			log.Infof("Run %s wrote results to %s", res.RunID, ctx.cfg.OutputDir)
			return nil
		},
	}
	cmd.Flags().IntVarP(&sample, "sample", "n", -1, "Print the final top matches of the first N users (env: COLLAB_SAMPLE)")
	return cmd
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "match <entities.csv>",
		Short: "Rank users by metadata only (genre, role, age, location)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			entities, err := svc.LoadEntities(args[0])
			if err != nil {
				return err
			}
			lists, err := svc.RankMetadata(cmd.Context(), entities)
			if err != nil {
				return err
			}

			dir := ctx.cfg.OutputDir
			csvPath := filepath.Join(dir, collabmatch.MetadataCSVFile)
			jsonPath := filepath.Join(dir, collabmatch.MetadataJSONFile)
			if err := writeTable(csvPath, func(w io.Writer) error { return tabular.WriteMetadataCSV(w, lists) }); err != nil {
				return err
			}
			if err := writeTable(jsonPath, func(w io.Writer) error { return tabular.WriteMetadataJSON(w, entities, lists) }); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Metadata matches for %s users\n   %s\n   %s\n",
				humanize.Comma(int64(len(lists))), csvPath, jsonPath)
			if sample < 0 {
				sample = ctx.cfg.Sample
			}
			printSamples(out, lists, sample)
			return nil
		},
	}
	cmd.Flags().IntVarP(&sample, "sample", "n", -1, "Print the top matches of the first N users (env: COLLAB_SAMPLE)")
	return cmd
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audio <entities.csv>",
		Short: "Rank users by audio similarity of their stored feature vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			entities, err := svc.LoadEntities(args[0])
			if err != nil {
				return err
			}
			n, err := svc.AttachFeatures(entities)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if n == 0 {
				fmt.Fprintln(out, "\n📭 No stored feature vectors match these users; run extract first")
				return nil
			}

			lists, err := svc.RankAudio(cmd.Context(), entities)
			if err != nil {
				return err
			}
			path := filepath.Join(ctx.cfg.OutputDir, collabmatch.AudioCSVFile)
			if err := writeTable(path, func(w io.Writer) error { return tabular.WriteAudioCSV(w, lists, ctx.cfg.TopK) }); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n✅ Audio matches for %s of %s users\n   %s\n",
				humanize.Comma(int64(n)), humanize.Comma(int64(len(entities))), path)
			return nil
		},
	}
}

func newConsolidateCommand(ctx *commandContext) *cobra.Command {
	var metadataPath, audioPath, outPath string
	var sample int

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Combine existing metadata and audio match tables into the final ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ctx.cfg.OutputDir
			if metadataPath == "" {
				metadataPath = filepath.Join(dir, collabmatch.MetadataCSVFile)
			}
			if audioPath == "" {
				audioPath = filepath.Join(dir, collabmatch.AudioCSVFile)
			}
			if outPath == "" {
				outPath = filepath.Join(dir, collabmatch.FinalCSVFile)
			}
			if _, err := os.Stat(audioPath); os.IsNotExist(err) {
				logger.GetLogger().Warnf("No audio table at %s; audio scores will be 0", audioPath)
				audioPath = ""
			}

			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			final, err := svc.ConsolidateFiles(metadataPath, audioPath)
			if err != nil {
				return err
			}
			if err := collabmatch.WriteConsolidatedFile(outPath, final); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Final matches for %s users\n   %s\n", humanize.Comma(int64(len(final))), outPath)
			if sample < 0 {
				sample = ctx.cfg.Sample
			}
			printSamples(out, final, sample)
			return nil
		},
	}
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "Metadata matches CSV (default <output>/"+collabmatch.MetadataCSVFile+")")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Audio matches CSV (default <output>/"+collabmatch.AudioCSVFile+")")
	cmd.Flags().StringVar(&outPath, "out", "", "Final matches CSV (default <output>/"+collabmatch.FinalCSVFile+")")
	cmd.Flags().IntVarP(&sample, "sample", "n", -1, "Print the final top matches of the first N users")
	return cmd
}

func writeTable(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// printSamples prints one table per list for the first n lists.
func printSamples(out io.Writer, lists []models.RankedMatchList, n int) {
	if n > len(lists) {
		n = len(lists)
	}
	for _, l := range lists[:n] {
		fmt.Fprintf(out, "\n🎵 %s (%s)\n", l.SourceName, l.SourceID)
		if len(l.Edges) == 0 {
			fmt.Fprintln(out, "   no matches")
			continue
		}
		rows := make([][]string, 0, len(l.Edges))
		for i, e := range l.Edges {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				e.TargetName,
				strconv.FormatFloat(tabular.Round(e.Score, 2), 'f', 2, 64),
				labels(e.Details.GenreMatches),
				labels(e.Details.RoleMatches),
				formatKm(e.Details.DistanceKm),
			})
		}
		fmt.Fprint(out, renderTable(
			[]string{"#", "Match", "Score", "Shared genres", "Shared roles", "Distance"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
		))
		fmt.Fprintln(out)
	}
}

func formatKm(d *float64) string {
	if d == nil {
		return "-"
	}
	return humanize.CommafWithDigits(*d, 1) + " km"
}
