package v1

import (
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/civiclens/civiclens/internal/profile"
	"github.com/civiclens/civiclens/plugin/ai"
	"github.com/civiclens/civiclens/plugin/ai/dedup"
	"github.com/civiclens/civiclens/store"
)

// EmbeddingRuntime is the slice of the ai runtime the API needs.
// *ai.Runtime satisfies it.
type EmbeddingRuntime interface {
	Service() (ai.EmbeddingService, error)
	IsReady() bool
}

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Runtime EmbeddingRuntime

	// checkSemaphore bounds concurrent duplicate checks so a burst of
	// submissions cannot pile up embedding calls.
	checkSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, runtime EmbeddingRuntime) *APIV1Service {
	return &APIV1Service{
		Profile:        profile,
		Store:          store,
		Runtime:        runtime,
		checkSemaphore: semaphore.NewWeighted(4),
	}
}

// RegisterRoutes attaches all v1 routes to the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/reports", s.CreateReport)
	g.GET("/reports", s.ListReports)
	g.GET("/reports/:id", s.GetReport)
	g.DELETE("/reports/:id", s.DeleteReport)
	g.POST("/reports:checkDuplicate", s.CheckDuplicate)

	g.GET("/system/status", s.GetSystemStatus)
}

// detectorOptions builds detection tuning from the profile.
func (s *APIV1Service) detectorOptions() dedup.Options {
	opts := dedup.DefaultOptions()
	if s.Profile.DedupThreshold > 0 {
		opts.Threshold = s.Profile.DedupThreshold
	}
	if s.Profile.DedupMaxMatches > 0 {
		opts.MaxMatches = s.Profile.DedupMaxMatches
	}
	if s.Profile.DedupScanLimit > 0 {
		opts.ScanLimit = s.Profile.DedupScanLimit
	}
	if s.Profile.DedupRecencyMonths > 0 {
		opts.RecencyWindow = monthsToDuration(s.Profile.DedupRecencyMonths)
	}
	return opts
}

func monthsToDuration(months int) time.Duration {
	return time.Duration(months) * 30 * 24 * time.Hour
}
