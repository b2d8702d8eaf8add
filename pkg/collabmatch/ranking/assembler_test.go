package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

func constScores(ids []string, scores map[[2]int]float64) ScoreFunc {
	return func(i, j int) (models.MatchEdge, bool) {
		return models.MatchEdge{SourceID: ids[i], TargetID: ids[j], Score: scores[[2]int{i, j}]}, true
	}
}

func TestTopKStableOnTies(t *testing.T) {
	var edges []models.MatchEdge
	for i := 0; i < 15; i++ {
		edges = append(edges, models.MatchEdge{TargetID: fmt.Sprintf("t%02d", i), Score: 50})
	}
	edges[12].Score = 60

	top := TopK(edges, 10)
	if len(top) != 10 {
		t.Fatalf("got %d edges, want 10", len(top))
	}
	if top[0].TargetID != "t12" {
		t.Errorf("best edge: got %s, want t12", top[0].TargetID)
	}
	for i := 1; i < 10; i++ {
		want := fmt.Sprintf("t%02d", i-1)
		if top[i].TargetID != want {
			t.Errorf("rank %d: got %s, want %s (enumeration order)", i+1, top[i].TargetID, want)
		}
	}
}

func TestAssembleExcludesSelfAndTruncates(t *testing.T) {
	n := 14
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%02d", i)
	}
	scores := map[[2]int]float64{}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scores[[2]int{i, j}] = float64((i*7 + j*3) % 11)
		}
	}

	a := &Assembler{K: 10, Workers: 3}
	lists, err := a.Assemble(context.Background(), n, constScores(ids, scores))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(lists) != n {
		t.Fatalf("got %d lists, want %d", len(lists), n)
	}
	for i, edges := range lists {
		if len(edges) != 10 {
			t.Errorf("source %d: got %d edges, want 10", i, len(edges))
		}
		for k, e := range edges {
			if e.TargetID == ids[i] {
				t.Errorf("source %d ranks itself", i)
			}
			if e.SourceID != ids[i] {
				t.Errorf("source %d: edge written to wrong slot (%s)", i, e.SourceID)
			}
			if k > 0 && edges[k-1].Score < e.Score {
				t.Errorf("source %d: not sorted at rank %d", i, k+1)
			}
		}
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	n := 25
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%02d", i)
	}
	scores := map[[2]int]float64{}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scores[[2]int{i, j}] = float64((i + j) % 4)
		}
	}

	first, err := (&Assembler{K: 10, Workers: 1}).Assemble(context.Background(), n, constScores(ids, scores))
	if err != nil {
		t.Fatal(err)
	}
	second, err := (&Assembler{K: 10, Workers: 8}).Assemble(context.Background(), n, constScores(ids, scores))
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		for k := range first[i] {
			if first[i][k].TargetID != second[i][k].TargetID {
				t.Fatalf("source %d rank %d differs between worker counts: %s vs %s",
					i, k+1, first[i][k].TargetID, second[i][k].TargetID)
			}
		}
	}
}

func TestAssembleSkipsRejectedPairs(t *testing.T) {
	score := func(i, j int) (models.MatchEdge, bool) {
		return models.MatchEdge{Score: 1}, j%2 == 0
	}
	lists, err := (&Assembler{K: 10}).Assemble(context.Background(), 5, score)
	if err != nil {
		t.Fatal(err)
	}
	// Source 1 sees targets 0, 2 and 4.
	if got := len(lists[1]); got != 3 {
		t.Errorf("got %d edges, want 3", got)
	}
}

func TestAssembleHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Assemble(ctx, 10, func(i, j int) (models.MatchEdge, bool) {
		return models.MatchEdge{}, true
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestAssembleSingleEntity(t *testing.T) {
	lists, err := New().Assemble(context.Background(), 1, func(i, j int) (models.MatchEdge, bool) {
		t.Fatal("score called for a lone entity")
		return models.MatchEdge{}, false
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || len(lists[0]) != 0 {
		t.Errorf("got %v, want one empty list", lists)
	}
}
