package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civiclens/civiclens/plugin/ai/dedup"
	"github.com/civiclens/civiclens/store"
)

// CreateReportRequest is the submission payload.
type CreateReportRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Location    string  `json:"location,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`

	// SkipDuplicateCheck bypasses detection, for backfill imports.
	SkipDuplicateCheck bool `json:"skip_duplicate_check,omitempty"`

	// Force stores the report even when duplicates were found.
	Force bool `json:"force,omitempty"`
}

// ReportResponse is the caller-facing view of a stored report.
type ReportResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Location     string  `json:"location,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	HasEmbedding bool    `json:"has_embedding"`
	CreatedTs    int64   `json:"created_ts"`
}

// CreateReportResponse pairs the stored report with the duplicate decision
// made on the way in.
type CreateReportResponse struct {
	Report         *ReportResponse    `json:"report"`
	DuplicateCheck *dedup.CheckResult `json:"duplicate_check,omitempty"`
}

// CreateReport stores a new report, checking for duplicates first.
// POST /api/v1/reports
func (s *APIV1Service) CreateReport(c echo.Context) error {
	req := &CreateReportRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	checkReq := &dedup.CheckRequest{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if msg := validateCheckRequest(checkReq); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	var checkResult *dedup.CheckResult
	if !req.SkipDuplicateCheck {
		result, err := s.runDuplicateCheck(c, checkReq)
		if err != nil {
			return duplicateCheckError(c, err)
		}
		checkResult = result
		if result.IsDuplicate && !req.Force {
			return c.JSON(http.StatusConflict, CreateReportResponse{DuplicateCheck: result})
		}
	}

	report := &store.Report{
		Title:       checkReq.Title,
		Category:    checkReq.Category,
		Description: checkReq.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	// Best-effort: compute the embedding now so the report is immediately
	// searchable. Any failure is swallowed; the background runner picks
	// the report up later.
	s.attachEmbedding(c, report)

	created, err := s.Store.CreateReport(c.Request().Context(), report)
	if err != nil {
		slog.Error("failed to create report", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create report"})
	}

	return c.JSON(http.StatusCreated, CreateReportResponse{
		Report:         convertReport(created),
		DuplicateCheck: checkResult,
	})
}

// attachEmbedding computes the report's embedding in-line when the runtime is
// ready. Failures are logged and suppressed: a report submission must never
// be blocked by the embedding provider.
func (s *APIV1Service) attachEmbedding(c echo.Context, report *store.Report) {
	embedding, err := s.Runtime.Service()
	if err != nil {
		slog.Warn("embedding service not ready, deferring to background runner", "error", err)
		return
	}

	text := dedup.BuildEmbeddingText(report.Title, report.Category, report.Description, report.Location)
	vector, err := embedding.Embed(c.Request().Context(), text)
	if err != nil {
		slog.Warn("failed to embed new report, deferring to background runner", "error", err)
		return
	}
	report.Embedding = vector
	report.EmbeddingVersion = embedding.Version()
}

// GetReport returns a single report.
// GET /api/v1/reports/:id
func (s *APIV1Service) GetReport(c echo.Context) error {
	report, err := s.Store.GetReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		slog.Error("failed to get report", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get report"})
	}
	if report == nil || report.IsDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "report not found"})
	}
	return c.JSON(http.StatusOK, convertReport(report))
}

// ListReports lists reports, optionally filtered by category.
// GET /api/v1/reports?category=ROADS&limit=50
func (s *APIV1Service) ListReports(c echo.Context) error {
	find := &store.FindReport{ExcludeDeleted: true}

	if category := c.QueryParam("category"); category != "" {
		upper := strings.ToUpper(category)
		find.Category = &upper
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}
	find.Limit = &limit

	reports, err := s.Store.ListReports(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list reports"})
	}

	responses := make([]*ReportResponse, len(reports))
	for i, report := range reports {
		responses[i] = convertReport(report)
	}
	return c.JSON(http.StatusOK, responses)
}

// DeleteReport soft-deletes a report.
// DELETE /api/v1/reports/:id
func (s *APIV1Service) DeleteReport(c echo.Context) error {
	id := c.Param("id")
	report, err := s.Store.GetReport(c.Request().Context(), id)
	if err != nil {
		slog.Error("failed to get report", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete report"})
	}
	if report == nil || report.IsDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "report not found"})
	}

	if err := s.Store.DeleteReport(c.Request().Context(), &store.DeleteReport{ID: id}); err != nil {
		slog.Error("failed to delete report", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete report"})
	}
	return c.NoContent(http.StatusNoContent)
}

func convertReport(report *store.Report) *ReportResponse {
	return &ReportResponse{
		ID:           report.ID,
		Title:        report.Title,
		Category:     report.Category,
		Description:  report.Description,
		Location:     report.Location,
		Latitude:     report.Latitude,
		Longitude:    report.Longitude,
		HasEmbedding: len(report.Embedding) > 0,
		CreatedTs:    report.CreatedTs,
	}
}
