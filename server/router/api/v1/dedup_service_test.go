package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclens/civiclens/internal/profile"
	"github.com/civiclens/civiclens/plugin/ai"
	"github.com/civiclens/civiclens/plugin/ai/dedup"
	"github.com/civiclens/civiclens/store"
	"github.com/civiclens/civiclens/store/db/sqlite"
)

type fakeRuntime struct {
	service ai.EmbeddingService
	err     error
}

func (r *fakeRuntime) Service() (ai.EmbeddingService, error) { return r.service, r.err }
func (r *fakeRuntime) IsReady() bool                         { return r.err == nil }

func newTestService(t *testing.T, runtime EmbeddingRuntime) *APIV1Service {
	t.Helper()
	dir := t.TempDir()
	testProfile := &profile.Profile{
		Mode:          "dev",
		Driver:        "sqlite",
		Data:          dir,
		DSN:           filepath.Join(dir, "civiclens_test.db"),
		EmbeddingDims: 8,
	}
	driver, err := sqlite.NewDB(testProfile)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))

	s := store.New(driver, testProfile)
	t.Cleanup(func() { _ = s.Close() })
	return NewAPIV1Service(testProfile, s, runtime)
}

func postJSON(t *testing.T, handler echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

// seedReport stores a report with its embedding precomputed by mock, the way
// a previously submitted report would look.
func seedReport(t *testing.T, svc *APIV1Service, mock *ai.MockEmbeddingService, report *store.Report) *store.Report {
	t.Helper()
	text := dedup.BuildEmbeddingText(report.Title, report.Category, report.Description, report.Location)
	vector, err := mock.Embed(context.Background(), text)
	require.NoError(t, err)
	report.Embedding = vector
	report.EmbeddingVersion = mock.Version()

	created, err := svc.Store.CreateReport(context.Background(), report)
	require.NoError(t, err)
	return created
}

func TestCheckDuplicateValidation(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	tests := []struct {
		name string
		body string
	}{
		{"title too short", `{"title": "ab", "category": "ROADS"}`},
		{"missing category", `{"title": "Pothole on Elm"}`},
		{"title too long", `{"title": "` + strings.Repeat("a", 201) + `", "category": "ROADS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, svc.CheckDuplicate, "/api/v1/reports:checkDuplicate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCheckDuplicateEmbeddingNotReady(t *testing.T) {
	svc := newTestService(t, &fakeRuntime{err: ai.ErrEmbeddingUnavailable})

	rec := postJSON(t, svc.CheckDuplicate, "/api/v1/reports:checkDuplicate",
		`{"title": "Pothole on Elm", "category": "ROADS"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckDuplicateFindsMatch(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	seeded := seedReport(t, svc, mock, &store.Report{
		Title:       "Pothole on Elm Street",
		Category:    "ROADS",
		Description: "Deep pothole near the school crossing",
	})

	// Same text embeds to the same vector, so similarity is 1.
	rec := postJSON(t, svc.CheckDuplicate, "/api/v1/reports:checkDuplicate",
		`{"title": "Pothole on Elm Street", "category": "ROADS", "description": "Deep pothole near the school crossing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result dedup.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsDuplicate)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, seeded.ID, result.Matches[0].ID)
	assert.InDelta(t, 1.0, result.Matches[0].Similarity, 0.0001)
	assert.Equal(t, 1, result.CheckedCount)
}

func TestCheckDuplicateCategoryIsolation(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	seedReport(t, svc, mock, &store.Report{
		Title:       "Pothole on Elm Street",
		Category:    "ROADS",
		Description: "Deep pothole near the school crossing",
	})

	rec := postJSON(t, svc.CheckDuplicate, "/api/v1/reports:checkDuplicate",
		`{"title": "Pothole on Elm Street", "category": "LIGHTING", "description": "Deep pothole near the school crossing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result dedup.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, 0, result.CheckedCount)
}

func TestCreateReportStoresAndEmbeds(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	rec := postJSON(t, svc.CreateReport, "/api/v1/reports",
		`{"title": "Streetlight out", "category": "lighting", "description": "Lamp post dark for a week"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Report)
	assert.NotEmpty(t, resp.Report.ID)
	assert.Equal(t, "LIGHTING", resp.Report.Category)
	assert.True(t, resp.Report.HasEmbedding)
	require.NotNil(t, resp.DuplicateCheck)
	assert.False(t, resp.DuplicateCheck.IsDuplicate)
}

func TestCreateReportConflictAndForce(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	body := `{"title": "Streetlight out", "category": "LIGHTING", "description": "Lamp post dark for a week"}`

	rec := postJSON(t, svc.CreateReport, "/api/v1/reports", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Resubmitting the identical report is rejected with the matches.
	rec = postJSON(t, svc.CreateReport, "/api/v1/reports", body)
	require.Equal(t, http.StatusConflict, rec.Code)

	var conflict CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Nil(t, conflict.Report)
	require.NotNil(t, conflict.DuplicateCheck)
	assert.True(t, conflict.DuplicateCheck.IsDuplicate)
	assert.NotEmpty(t, conflict.DuplicateCheck.Matches)

	// Force overrides the rejection.
	forced := `{"title": "Streetlight out", "category": "LIGHTING", "description": "Lamp post dark for a week", "force": true}`
	rec = postJSON(t, svc.CreateReport, "/api/v1/reports", forced)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateReportSkipDuplicateCheck(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	body := `{"title": "Streetlight out", "category": "LIGHTING", "skip_duplicate_check": true}`

	rec := postJSON(t, svc.CreateReport, "/api/v1/reports", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, svc.CreateReport, "/api/v1/reports", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.DuplicateCheck)
}

func TestCreateReportEmbeddingDeferred(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	mock.Err = ai.ErrEmbeddingUnavailable
	svc := newTestService(t, &fakeRuntime{service: mock})

	// Submission must succeed even when the embedding call fails.
	rec := postJSON(t, svc.CreateReport, "/api/v1/reports",
		`{"title": "Streetlight out", "category": "LIGHTING", "skip_duplicate_check": true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Report.HasEmbedding)
}

func TestGetAndDeleteReport(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	seeded := seedReport(t, svc, mock, &store.Report{
		Title:    "Streetlight out",
		Category: "LIGHTING",
	})

	e := echo.New()

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+id, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, svc.GetReport(c))
		return rec
	}

	rec := get(seeded.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get("no-such-id")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reports/"+seeded.ID, nil)
	del := httptest.NewRecorder()
	c := e.NewContext(req, del)
	c.SetParamNames("id")
	c.SetParamValues(seeded.ID)
	require.NoError(t, svc.DeleteReport(c))
	assert.Equal(t, http.StatusNoContent, del.Code)

	// Deleted reports read back as not found.
	rec = get(seeded.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReportsFilters(t *testing.T) {
	mock := ai.NewMockEmbeddingService(8)
	svc := newTestService(t, &fakeRuntime{service: mock})

	seedReport(t, svc, mock, &store.Report{Title: "Pothole on Elm", Category: "ROADS"})
	seedReport(t, svc, mock, &store.Report{Title: "Streetlight out", Category: "LIGHTING"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?category=roads", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, svc.ListReports(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var reports []*ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "ROADS", reports[0].Category)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=bogus", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, svc.ListReports(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
