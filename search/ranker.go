package search

import (
	"math"
	"sort"

	"github.com/poiesic/semblance/core"
)

// Candidate is one embedding vector eligible for ranking.
type Candidate struct {
	Id     core.ID
	Vector []float32
}

// Scored is a ranked candidate with its similarity to the reference.
type Scored struct {
	Id    core.ID
	Score float32
}

// Rank scores candidates against the reference vector by cosine
// similarity, clamped to [0, 1], and returns those at or above minSim
// in descending order. Ties keep their input order. Candidates with an
// empty vector or a dimensionality different from the reference are
// excluded rather than erroring; mixed-model stores are expected while
// a re-embed is in flight.
func Rank(ref []float32, candidates []Candidate, minSim float32) []Scored {
	if len(ref) == 0 {
		return nil
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(ref) {
			continue
		}
		sim := cosineSimilarity(ref, c.Vector)
		if sim < minSim {
			continue
		}
		scored = append(scored, Scored{Id: c.Id, Score: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// cosineSimilarity computes the cosine of the angle between two
// equal-length vectors, clamped to [0, 1]. Negative cosines collapse to
// zero; opposed vectors are simply "not similar" for ranking purposes.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return float32(sim)
}
