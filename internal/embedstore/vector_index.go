package embedstore

import (
	"math"
	"slices"
)

// vectorIndex is a brute-force cosine index over the log. Position j in the
// index is position j in the log.
type vectorIndex struct {
	vecs    [][]float32
	mags    []float64
	sources []string
}

type hit struct {
	pos   int
	score float32
}

func newVectorIndex(records []Record) *vectorIndex {
	idx := &vectorIndex{
		vecs:    make([][]float32, 0, len(records)),
		mags:    make([]float64, 0, len(records)),
		sources: make([]string, 0, len(records)),
	}
	for _, r := range records {
		idx.add(r)
	}
	return idx
}

func (v *vectorIndex) add(r Record) {
	v.vecs = append(v.vecs, r.Embedding)
	v.mags = append(v.mags, magnitude(r.Embedding))
	v.sources = append(v.sources, r.Source)
}

// search returns up to limit hits by descending cosine similarity, earlier
// positions first on equal scores. Hits below minScore are dropped when
// minScore > 0; an empty source matches every record.
func (v *vectorIndex) search(query []float32, limit int, source string, minScore float32) []hit {
	qm := magnitude(query)
	if qm == 0 || limit <= 0 {
		return nil
	}

	hits := make([]hit, 0, len(v.vecs))
	for j, vec := range v.vecs {
		if source != "" && v.sources[j] != source {
			continue
		}
		if v.mags[j] == 0 || len(vec) != len(query) {
			continue
		}
		s := dot(query, vec) / (qm * v.mags[j])
		if math.IsNaN(s) {
			continue
		}
		score := float32(s)
		if minScore > 0 && score < minScore {
			continue
		}
		hits = append(hits, hit{pos: j, score: score})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.pos - b.pos
		}
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Similarity computes cosine similarity between two vectors. It returns 0
// for mismatched lengths or zero-magnitude input.
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	ma, mb := magnitude(a), magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	return float32(dot(a, b) / (ma * mb))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
