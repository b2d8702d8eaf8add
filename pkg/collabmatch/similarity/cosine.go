// Package similarity ranks entities by cosine similarity of their audio feature vectors.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrDimensionMismatch is returned when feature vectors do not share one length.
var ErrDimensionMismatch = errors.New("feature vector dimension mismatch")

// Matrix is a dense row-major N×D matrix of feature vectors.
type Matrix struct {
	Rows int
	Dims int
	Data []float64
}

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Dims : (i+1)*m.Dims]
}

// BuildMatrix stacks vectors in the given order. Every vector must have the same,
// non-zero length.
func BuildMatrix(vectors [][]float64) (*Matrix, error) {
	if len(vectors) == 0 {
		return &Matrix{}, nil
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: row 0 is empty", ErrDimensionMismatch)
	}
	m := &Matrix{Rows: len(vectors), Dims: dims, Data: make([]float64, 0, len(vectors)*dims)}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: row %d has %d dims, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
		m.Data = append(m.Data, v...)
	}
	return m, nil
}

// Cosine returns a·b / (‖a‖‖b‖) for vectors of equal length. A zero-norm vector has
// similarity 0 with everything.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineMatrix computes the full N×N similarity matrix. Rows are computed in parallel
// with at most workers goroutines; workers <= 0 means one per CPU.
func CosineMatrix(ctx context.Context, m *Matrix, workers int) ([][]float64, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	norms := make([]float64, m.Rows)
	for i := range norms {
		var sum float64
		for _, v := range m.Row(i) {
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}

	sim := make([][]float64, m.Rows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < m.Rows; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := make([]float64, m.Rows)
			a := m.Row(i)
			for j := 0; j < m.Rows; j++ {
				if norms[i] == 0 || norms[j] == 0 {
					continue
				}
				var dot float64
				for k, v := range m.Row(j) {
					dot += a[k] * v
				}
				row[j] = dot / (norms[i] * norms[j])
			}
			sim[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sim, nil
}
