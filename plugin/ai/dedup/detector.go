// Package dedup decides whether a new incident report duplicates a previously
// submitted one, fusing embedding cosine similarity with geographic proximity
// under a hard spatial cutoff.
package dedup

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Detector finds prior reports that duplicate a new one.
type Detector interface {
	// CheckDuplicate ranks stored reports against the given fields.
	CheckDuplicate(ctx context.Context, req *CheckRequest) (*CheckResult, error)
}

// CheckRequest contains the new report's fields.
type CheckRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Location    string  `json:"location,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`

	// Threshold overrides the configured combined-score threshold when > 0.
	Threshold float64 `json:"threshold,omitempty"`
}

// Match is one ranked duplicate candidate.
type Match struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`

	// DistanceKm and LocationScore are nil when either side lacks
	// coordinates; the combined score then equals the similarity alone.
	DistanceKm    *float64 `json:"distance_km,omitempty"`
	LocationScore *float64 `json:"location_score,omitempty"`
	CombinedScore float64  `json:"combined_score"`
}

// CheckResult is the detection outcome.
type CheckResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Matches     []Match `json:"matches,omitempty"`

	// CheckedCount is how many usable candidates were scored. When it
	// equals the scan limit the category may have saturated the cap.
	CheckedCount int   `json:"checked_count"`
	ElapsedMs    int64 `json:"elapsed_ms"`
}

// Detection failure conditions.
var (
	// ErrSearchUnavailable indicates the candidate store read failed.
	ErrSearchUnavailable = errors.New("candidate search unavailable")

	// ErrTimeout indicates the overall operation exceeded its deadline.
	ErrTimeout = errors.New("duplicate check timed out")
)

// Detection defaults.
const (
	DefaultThreshold     = 0.82
	DefaultMaxMatches    = 5
	DefaultScanLimit     = 1000
	DefaultRecencyWindow = 365 * 24 * time.Hour // ~12 months
)

// Options tune a Detector. Zero values fall back to the defaults.
type Options struct {
	Threshold     float64
	MaxMatches    int
	ScanLimit     int
	RecencyWindow time.Duration
	MaxDistanceKm float64
	HardCutoffKm  float64
	Weights       Weights
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Threshold:     DefaultThreshold,
		MaxMatches:    DefaultMaxMatches,
		ScanLimit:     DefaultScanLimit,
		RecencyWindow: DefaultRecencyWindow,
		MaxDistanceKm: DefaultMaxDistanceKm,
		HardCutoffKm:  DefaultHardCutoffKm,
		Weights:       DefaultWeights,
	}
}

func (o *Options) applyDefaults() {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = DefaultMaxMatches
	}
	if o.ScanLimit <= 0 {
		o.ScanLimit = DefaultScanLimit
	}
	if o.RecencyWindow <= 0 {
		o.RecencyWindow = DefaultRecencyWindow
	}
	if o.MaxDistanceKm <= 0 {
		o.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if o.HardCutoffKm <= 0 {
		o.HardCutoffKm = DefaultHardCutoffKm
	}
	if o.Weights.Semantic == 0 && o.Weights.Location == 0 {
		o.Weights = DefaultWeights
	}
}
