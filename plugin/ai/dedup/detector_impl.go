package dedup

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/civiclens/civiclens/plugin/ai"
	"github.com/civiclens/civiclens/store"
)

// CandidateStore is the slice of the report store the detector needs.
// *store.Store satisfies it.
type CandidateStore interface {
	ListCandidateReports(ctx context.Context, category string, limit int) ([]*store.Report, error)
}

type detector struct {
	reports   CandidateStore
	embedding ai.EmbeddingService
	opts      Options
	now       func() time.Time
}

// NewDetector creates a Detector over the given candidate store and
// embedding service.
func NewDetector(reports CandidateStore, embedding ai.EmbeddingService, opts Options) Detector {
	opts.applyDefaults()
	return &detector{
		reports:   reports,
		embedding: embedding,
		opts:      opts,
		now:       time.Now,
	}
}

func (d *detector) CheckDuplicate(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := d.now()

	threshold := d.opts.Threshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}

	// Step 1: embed the structured text of the new report.
	text := BuildEmbeddingText(req.Title, req.Category, req.Description, req.Location)
	queryVector, err := d.embedding.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(ErrTimeout, "embedding new report")
		}
		return nil, err
	}

	// Step 2: pull candidates. The category filter runs server-side; the
	// scan limit is a defensive cap, not a completeness guarantee.
	candidates, err := d.reports.ListCandidateReports(ctx, req.Category, d.opts.ScanLimit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(ErrTimeout, "listing candidates")
		}
		return nil, errors.Wrapf(ErrSearchUnavailable, "listing candidates: %v", err)
	}

	queryHasCoords := validCoordinates(req.Latitude, req.Longitude)
	recencyCutoff := start.Add(-d.opts.RecencyWindow).Unix()
	currentVersion := d.embedding.Version()

	// Step 3: score each usable candidate.
	var (
		checked int
		kept    []rankedMatch
	)
	for _, candidate := range candidates {
		if !usable(candidate, currentVersion, recencyCutoff) {
			continue
		}
		checked++

		var distanceKm float64
		haveDistance := false
		if queryHasCoords && candidate.HasCoordinates() {
			distanceKm = DistanceKm(req.Latitude, req.Longitude, candidate.Latitude, candidate.Longitude)
			haveDistance = !math.IsInf(distanceKm, 1)
			// Spatial implausibility is an absolute veto: a report
			// half a city away is not a duplicate however similar
			// its text reads.
			if haveDistance && distanceKm > d.opts.HardCutoffKm {
				continue
			}
		}

		similarity, err := CosineSimilarity(queryVector, candidate.Embedding)
		if err != nil {
			// Version filtering should have prevented this; treat
			// it as the defect it is.
			return nil, errors.Wrapf(err, "candidate %s", candidate.ID)
		}
		similarity = roundScore(similarity)

		match := Match{
			ID:         candidate.ID,
			Title:      candidate.Title,
			Snippet:    Truncate(candidate.Description, 100),
			Similarity: similarity,
		}
		if haveDistance {
			locationScore := LocationScore(distanceKm, d.opts.MaxDistanceKm)
			match.DistanceKm = &distanceKm
			match.LocationScore = &locationScore
			match.CombinedScore = CombinedScore(similarity, locationScore, d.opts.Weights)
		} else {
			// No location signal on one side: the location term
			// contributes nothing rather than acting as a penalty.
			match.CombinedScore = similarity
		}

		// Threshold boundary is inclusive.
		if match.CombinedScore >= threshold {
			kept = append(kept, rankedMatch{Match: match, createdTs: candidate.CreatedTs})
		}
	}

	// Steps 4-6: rank, truncate, decide.
	matches := rankMatches(kept, d.opts.MaxMatches)

	result := &CheckResult{
		IsDuplicate:  len(matches) > 0,
		Matches:      matches,
		CheckedCount: checked,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}

	if checked == d.opts.ScanLimit {
		slog.Warn("candidate scan limit saturated, duplicates beyond the cap are not considered",
			"category", req.Category, "limit", d.opts.ScanLimit)
	}
	return result, nil
}

// usable applies the client-side half of candidate filtering: not deleted, a
// present current-version embedding, and created within the recency window.
func usable(r *store.Report, currentVersion int, recencyCutoff int64) bool {
	if r.IsDeleted {
		return false
	}
	if len(r.Embedding) == 0 || r.EmbeddingVersion != currentVersion {
		return false
	}
	return r.CreatedTs >= recencyCutoff
}

type rankedMatch struct {
	Match
	createdTs int64
}

// rankMatches sorts by combined score descending and truncates. Equal scores
// order by creation time ascending then ID, so the oldest report, the
// canonical original, outranks later near-copies.
func rankMatches(kept []rankedMatch, maxMatches int) []Match {
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].CombinedScore != kept[j].CombinedScore {
			return kept[i].CombinedScore > kept[j].CombinedScore
		}
		if kept[i].createdTs != kept[j].createdTs {
			return kept[i].createdTs < kept[j].createdTs
		}
		return kept[i].ID < kept[j].ID
	})

	if len(kept) > maxMatches {
		kept = kept[:maxMatches]
	}
	matches := make([]Match, len(kept))
	for i, m := range kept {
		matches[i] = m.Match
	}
	return matches
}
