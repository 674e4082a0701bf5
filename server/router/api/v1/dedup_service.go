package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/civiclens/civiclens/plugin/ai"
	"github.com/civiclens/civiclens/plugin/ai/dedup"
)

const (
	minTitleLength       = 3
	maxTitleLength       = 200
	maxDescriptionLength = 5000

	// checkTimeout bounds one duplicate check end to end: model inference
	// plus one bounded-size candidate read.
	checkTimeout = 15 * time.Second
)

// CheckDuplicate runs a standalone duplicate check without storing anything.
// POST /api/v1/reports:checkDuplicate
func (s *APIV1Service) CheckDuplicate(c echo.Context) error {
	req := &dedup.CheckRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if msg := validateCheckRequest(req); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	result, err := s.runDuplicateCheck(c, req)
	if err != nil {
		return duplicateCheckError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// runDuplicateCheck acquires an admission slot and executes the check under
// the configured timeout.
func (s *APIV1Service) runDuplicateCheck(c echo.Context, req *dedup.CheckRequest) (*dedup.CheckResult, error) {
	embedding, err := s.Runtime.Service()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	if err := s.checkSemaphore.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(dedup.ErrTimeout, "waiting for admission")
	}
	defer s.checkSemaphore.Release(1)

	detector := dedup.NewDetector(s.Store, embedding, s.detectorOptions())
	return detector.CheckDuplicate(ctx, req)
}

func validateCheckRequest(req *dedup.CheckRequest) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	req.Description = strings.TrimSpace(req.Description)

	titleLen := len([]rune(req.Title))
	if titleLen < minTitleLength {
		return "title too short"
	}
	if titleLen > maxTitleLength {
		return "title too long"
	}
	if req.Category == "" {
		return "category is required"
	}
	if len([]rune(req.Description)) > maxDescriptionLength {
		return "description too long"
	}
	return ""
}

func duplicateCheckError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ai.ErrEmbeddingUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "embedding service unavailable"})
	case errors.Is(err, dedup.ErrSearchUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "candidate search unavailable"})
	case errors.Is(err, dedup.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "duplicate check timed out"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "duplicate check failed"})
	}
}
