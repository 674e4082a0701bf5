package dedup

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDimensionMismatch indicates embeddings of differing length were
// compared. Version filtering in candidate search should make this
// impossible; hitting it is a defect, not a runtime condition.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Weights blend semantic similarity and location proximity into the combined
// score. They conventionally sum to 1 but are not required to.
type Weights struct {
	Semantic float64
	Location float64
}

// DefaultWeights favor text over proximity.
var DefaultWeights = Weights{
	Semantic: 0.7,
	Location: 0.3,
}

// Scoring distance constants, in kilometers.
const (
	// DefaultMaxDistanceKm is the decay scale of the proximity kernel:
	// score ~0.37 at this distance, ~0.14 at twice it.
	DefaultMaxDistanceKm = 0.25

	// DefaultHardCutoffKm is the spatial veto: beyond it two reports are
	// never duplicates regardless of text.
	DefaultHardCutoffKm = 0.5
)

// CosineSimilarity computes dot-product-over-norms similarity in [-1, 1].
// Vectors of differing length yield ErrDimensionMismatch; a zero-magnitude
// vector yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrDimensionMismatch, "len %d vs %d", len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// LocationScore maps a distance to a proximity score in [0, 1] with an
// exponential-decay kernel: 1 at zero distance, smooth falloff after, so
// near-misses still contribute. Negative or non-finite distances score 0.
func LocationScore(distanceKm, maxDistanceKm float64) float64 {
	if distanceKm < 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0
	}
	if distanceKm == 0 {
		return 1
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}
	return roundScore(math.Exp(-distanceKm / maxDistanceKm))
}

// CombinedScore fuses semantic similarity and a location score with the
// given weights.
func CombinedScore(semanticSim, locationScore float64, w Weights) float64 {
	return roundScore(w.Semantic*semanticSim + w.Location*locationScore)
}

// roundScore rounds to 4 decimal places. All score fields pass through here
// so comparison and tie behavior stay consistent across components.
func roundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Truncate shortens content to maxLen runes for display snippets.
func Truncate(content string, maxLen int) string {
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
