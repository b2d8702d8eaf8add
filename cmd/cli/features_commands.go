package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/storage"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var start, duration float64
	var noNormalize bool

	cmd := &cobra.Command{
		Use:   "extract <entities.csv>",
		Short: "Extract audio feature vectors from each user's clip into the feature store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []collabmatch.Option{collabmatch.WithClipConfig(clipConfig(start, duration))}
			if noNormalize {
				opts = append(opts, collabmatch.WithNormalize(false))
			}
			svc, err := ctx.newService(opts...)
			if err != nil {
				return err
			}
			defer svc.Close()

			entities, err := svc.LoadEntities(args[0])
			if err != nil {
				return err
			}
			report, err := svc.ExtractFeatures(cmd.Context(), entities)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Batch %s\n", report.BatchID)
			fmt.Fprint(out, renderTable(
				[]string{"Result", "Users"},
				[][]string{
					{"Extracted", humanize.Comma(int64(report.Extracted))},
					{"No clip", humanize.Comma(int64(report.Missing))},
					{"Failed", humanize.Comma(int64(report.Failed))},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "Seconds to skip at the start of each clip")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Seconds of audio to analyse (0 = whole clip)")
	cmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "Read clips as-is instead of converting them with ffmpeg")
	return cmd
}

func newFeaturesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Inspect the feature store",
	}
	cmd.AddCommand(newFeaturesListCommand(ctx))
	cmd.AddCommand(newFeaturesDeleteCommand(ctx))
	return cmd
}

func newFeaturesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored feature vectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			infos, err := svc.ListFeatures()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "\n📭 No feature vectors in the store")
				return nil
			}

			rows := make([][]string, 0, len(infos))
			for _, f := range infos {
				rows = append(rows, []string{f.UserID, strconv.Itoa(f.Dims), f.BatchID, humanize.Time(f.CreatedAt), f.ClipPath})
			}
			fmt.Fprintf(out, "\n📚 %s feature vector(s)\n", humanize.Comma(int64(len(infos))))
			fmt.Fprint(out, renderTable(
				[]string{"User", "Dims", "Batch", "Extracted", "Clip"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintln(out)
			logger.GetLogger().Infof("Listed %d feature vectors", len(infos))
			return nil
		},
	}
}

func newFeaturesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user_id>",
		Short: "Delete a user's stored feature vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteFeatures(args[0]); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no feature vector stored for %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Deleted feature vector of %s\n", args[0])
			return nil
		},
	}
}
