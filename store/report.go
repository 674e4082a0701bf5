package store

import (
	"context"
	"math"

	"github.com/lithammer/shortuuid/v4"
)

// Report is a citizen incident report as persisted.
type Report struct {
	ID          string
	Title       string
	Category    string // uppercased by the caller
	Description string
	Location    string // free-text address
	Latitude    float64
	Longitude   float64

	// Embedding is the vector for the report's embedding text, or nil if not
	// yet computed. EmbeddingVersion records the model version it was
	// computed with.
	Embedding        []float32
	EmbeddingVersion int

	CreatedTs int64
	UpdatedTs int64
	IsDeleted bool
}

// HasCoordinates reports whether the report carries a usable coordinate pair.
// (0,0) is the "unknown" sentinel, never a real reading.
func (r *Report) HasCoordinates() bool {
	if r.Latitude == 0 && r.Longitude == 0 {
		return false
	}
	return !math.IsNaN(r.Latitude) && !math.IsInf(r.Latitude, 0) &&
		!math.IsNaN(r.Longitude) && !math.IsInf(r.Longitude, 0)
}

// FindReport is the find condition for reports.
type FindReport struct {
	ID       *string
	Category *string
	Limit    *int

	// ExcludeDeleted drops soft-deleted rows server-side.
	ExcludeDeleted bool
}

// UpdateReportEmbedding persists a newly computed embedding onto a report.
type UpdateReportEmbedding struct {
	ID               string
	Embedding        []float32
	EmbeddingVersion int
}

// DeleteReport soft-deletes a report.
type DeleteReport struct {
	ID string
}

// CreateReport creates a report. A missing ID is assigned.
func (s *Store) CreateReport(ctx context.Context, create *Report) (*Report, error) {
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	report, err := s.driver.CreateReport(ctx, create)
	if err != nil {
		return nil, err
	}
	s.candidateCache.Delete(create.Category)
	return report, nil
}

// GetReport gets a single report by ID, including soft-deleted rows.
func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	list, err := s.driver.ListReports(ctx, &FindReport{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListReports lists reports matching the find condition.
func (s *Store) ListReports(ctx context.Context, find *FindReport) ([]*Report, error) {
	return s.driver.ListReports(ctx, find)
}

// ListCandidateReports returns up to limit reports in a category, the
// server-side half of candidate search. Results are cached briefly; staleness
// within the TTL is acceptable for duplicate detection.
func (s *Store) ListCandidateReports(ctx context.Context, category string, limit int) ([]*Report, error) {
	if cached, ok := s.candidateCache.Get(category); ok {
		if reports, ok := cached.([]*Report); ok {
			return reports, nil
		}
	}

	reports, err := s.driver.ListReports(ctx, &FindReport{
		Category: &category,
		Limit:    &limit,
	})
	if err != nil {
		return nil, err
	}
	s.candidateCache.Set(category, reports)
	return reports, nil
}

// UpdateReportEmbedding persists the embedding for a report.
func (s *Store) UpdateReportEmbedding(ctx context.Context, update *UpdateReportEmbedding) error {
	if err := s.driver.UpdateReportEmbedding(ctx, update); err != nil {
		return err
	}
	s.candidateCache.Clear()
	return nil
}

// ListReportsWithoutEmbedding returns reports whose embedding is missing or
// was computed with a different model version.
func (s *Store) ListReportsWithoutEmbedding(ctx context.Context, version int, limit int) ([]*Report, error) {
	return s.driver.ListReportsWithoutEmbedding(ctx, version, limit)
}

// DeleteReport soft-deletes a report.
func (s *Store) DeleteReport(ctx context.Context, delete *DeleteReport) error {
	report, err := s.GetReport(ctx, delete.ID)
	if err != nil {
		return err
	}
	if err := s.driver.DeleteReport(ctx, delete); err != nil {
		return err
	}
	if report != nil {
		s.candidateCache.Delete(report.Category)
	}
	return nil
}
