package vecindex

import (
	"fmt"
	"math"
	"sort"
)

// normEpsilon keeps degenerate zero vectors from dividing by zero.
const normEpsilon = 1e-12

// Hit is one ranked retrieval result.
type Hit struct {
	ID    string
	Row   int
	Score float32
	Meta  Meta
}

// Search ranks every corpus row against the query by cosine similarity and
// returns the k best, sorted descending with ties broken by original row
// order. k of 0 means all rows. A query whose dimensionality does not match
// the matrix is a fatal condition surfaced to the caller.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	m := &idx.Matrix
	if len(query) != m.Dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), m.Dim)
	}
	if m.Rows == 0 {
		return nil, nil
	}

	q := normalize(query)

	scores := make([]float32, m.Rows)
	for i := 0; i < m.Rows; i++ {
		scores[i] = dot(normalize(m.Row(i)), q)
	}

	order := make([]int, m.Rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k <= 0 || k > m.Rows {
		k = m.Rows
	}

	hits := make([]Hit, 0, k)
	for _, row := range order[:k] {
		hit := Hit{
			ID:    idx.Manifest.IDs[row],
			Row:   row,
			Score: scores[row],
		}
		if row < len(idx.Manifest.Meta) {
			hit.Meta = idx.Manifest.Meta[row]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// normalize returns v scaled to unit L2 norm, accumulating in float64 for
// precision.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
