package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/CollabMatch/internal/tabular"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/similarity"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			if hint := errorHint(err); hint != "" {
				fmt.Fprintf(os.Stderr, "   %s\n", hint)
			}
		}
		os.Exit(1)
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, tabular.ErrMissingColumn):
		return "the input table is missing a required column; check the header row"
	case errors.Is(err, tabular.ErrDuplicateID), errors.Is(err, tabular.ErrEmptyID):
		return "every row needs a unique, non-empty user_id"
	case errors.Is(err, similarity.ErrDimensionMismatch):
		return "stored feature vectors disagree in length; re-run extract for every clip"
	case errors.Is(err, scoring.ErrInvalidWeights):
		return "fix the weights in the config file or pick a preset with --scheme"
	}
	return ""
}

func printBanner() {
	banner := `
  ____      _ _       _     __  __       _       _
 / ___|___ | | | __ _| |__ |  \/  | __ _| |_ ___| |__
| |   / _ \| | |/ _` + "`" + ` | '_ \| |\/| |/ _` + "`" + ` | __/ __| '_ \
| |__| (_) | | | (_| | |_) | |  | | (_| | || (__| | | |
 \____\___/|_|_|\__,_|_.__/|_|  |_|\__,_|\__\___|_| |_|

        Musician Collaboration Matching
`
	fmt.Println(banner)
}
