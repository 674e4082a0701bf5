package v1

import (
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
)

// SystemStatusResponse reports process health. Memory figures are
// informational only.
type SystemStatusResponse struct {
	Version        string `json:"version"`
	Mode           string `json:"mode"`
	EmbeddingReady bool   `json:"embedding_ready"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGoroutine   int    `json:"num_goroutine"`
}

// GetSystemStatus returns readiness and process stats.
// GET /api/v1/system/status
func (s *APIV1Service) GetSystemStatus(c echo.Context) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := SystemStatusResponse{
		Version:        s.Profile.Version,
		Mode:           s.Profile.Mode,
		EmbeddingReady: s.Runtime.IsReady(),
		EmbeddingModel: s.Profile.EmbeddingModel,
		Dimensions:     s.Profile.EmbeddingDims,
		HeapAllocBytes: memStats.HeapAlloc,
		SysBytes:       memStats.Sys,
		NumGoroutine:   runtime.NumGoroutine(),
	}
	return c.JSON(http.StatusOK, resp)
}
