package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/flare-go/internal/app"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/pkg/logger"
)

type fakeDownloads struct {
	submitErr error
	submitted []domain.DownloadRequest
	current   *app.ActiveDownload
	cancelErr error
	records   map[string]*domain.Download
	filters   map[string]interface{}
}

func (f *fakeDownloads) Submit(req domain.DownloadRequest) (*domain.Download, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return domain.NewDownload(req), nil
}

func (f *fakeDownloads) Cancel() error                { return f.cancelErr }
func (f *fakeDownloads) Current() *app.ActiveDownload { return f.current }

func (f *fakeDownloads) GetDownload(id string) (*domain.Download, error) {
	if d, ok := f.records[id]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDownloads) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	f.filters = filters
	var list []*domain.Download
	for _, d := range f.records {
		list = append(list, d)
	}
	return list, nil
}

func (f *fakeDownloads) DeleteDownload(id string) error {
	if _, ok := f.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeDownloads) GetStats() (*domain.DownloadStats, error) {
	return &domain.DownloadStats{Total: int64(len(f.records))}, nil
}

type fakeUpdates struct {
	check    domain.CheckResult
	apply    domain.ApplyResult
	applyErr error
}

func (f *fakeUpdates) Check(ctx context.Context) domain.CheckResult { return f.check }

func (f *fakeUpdates) Apply(ctx context.Context) (domain.ApplyResult, error) {
	return f.apply, f.applyErr
}

func newTestRouter(t *testing.T, downloads *fakeDownloads, updates *fakeUpdates, hub *app.EventHub) http.Handler {
	t.Helper()
	if hub == nil {
		hub = app.NewEventHub()
	}
	exe, err := os.Executable()
	require.NoError(t, err)

	return SetupRouter(Services{
		Downloads: downloads,
		Events:    hub,
		Updates:   updates,
		Tool:      &domain.ToolConfig{Binary: exe},
		LogsDir:   t.TempDir(),
	}, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAddDownload(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		submitErr  error
		wantStatus int
	}{
		{"created", map[string]interface{}{"url": "https://example.com/v", "flags": []string{"Subtitles"}}, nil, http.StatusCreated},
		{"missing url", map[string]interface{}{"media_type": "audio"}, nil, http.StatusBadRequest},
		{"busy", map[string]interface{}{"url": "https://example.com/v"}, domain.ErrBusy, http.StatusConflict},
		{"invalid", map[string]interface{}{"url": "nope"}, domain.NewError(domain.ErrorValidation, "bad url", nil), http.StatusBadRequest},
		{"tool missing", map[string]interface{}{"url": "https://example.com/v"}, domain.NewError(domain.ErrorLaunchFailure, "not found", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			downloads := &fakeDownloads{submitErr: tt.submitErr}
			router := newTestRouter(t, downloads, &fakeUpdates{}, nil)

			w := do(t, router, http.MethodPost, "/api/v1/downloads", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	downloads := &fakeDownloads{}
	router := newTestRouter(t, downloads, &fakeUpdates{}, nil)
	do(t, router, http.MethodPost, "/api/v1/downloads", map[string]interface{}{
		"url": "https://example.com/v", "media_type": "audio", "quality": "192k", "flags": []string{"Subtitles", "metadata"},
	})
	require.Len(t, downloads.submitted, 1)
	req := downloads.submitted[0]
	assert.Equal(t, domain.MediaAudio, req.MediaType)
	assert.Equal(t, "192k", req.Quality)
	assert.True(t, req.HasFlag(domain.FlagSubtitles))
	assert.True(t, req.HasFlag(domain.FlagMetadata))
}

func TestHistoryEndpoints(t *testing.T) {
	record := domain.NewDownload(domain.DownloadRequest{URL: "https://example.com/v", MediaType: domain.MediaVideo})
	downloads := &fakeDownloads{records: map[string]*domain.Download{record.ID: record}}
	router := newTestRouter(t, downloads, &fakeUpdates{}, nil)

	w := do(t, router, http.MethodGet, "/api/v1/downloads/"+record.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), record.URL)

	w = do(t, router, http.MethodGet, "/api/v1/downloads/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/downloads?status=failed&limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", downloads.filters["status"])
	assert.Equal(t, 5, downloads.filters["limit"])

	w = do(t, router, http.MethodGet, "/api/v1/downloads?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/downloads/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1,"queued":0,"processing":0,"completed":0,"failed":0,"cancelled":0}`, w.Body.String())

	w = do(t, router, http.MethodDelete, "/api/v1/downloads/"+record.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodDelete, "/api/v1/downloads/"+record.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentAndCancel(t *testing.T) {
	downloads := &fakeDownloads{cancelErr: domain.ErrNoActiveDownload}
	router := newTestRouter(t, downloads, &fakeUpdates{}, nil)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/downloads/current", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/api/v1/downloads/current/cancel", nil).Code)

	percent := 42.0
	downloads.current = &app.ActiveDownload{
		Download:  domain.Download{ID: "abc"},
		State:     domain.StateRunning,
		LastEvent: &domain.ProgressEvent{Kind: domain.EventProgress, Percent: &percent},
	}
	downloads.cancelErr = nil

	w := do(t, router, http.MethodGet, "/api/v1/downloads/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"percent":42`)
	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/api/v1/downloads/current/cancel", nil).Code)
}

func TestUpdateEndpoints(t *testing.T) {
	updates := &fakeUpdates{
		check: domain.CheckResult{
			Available: true,
			Manifest: &domain.UpdateManifest{
				LatestVersion: domain.ParseVersion("2.10.0"),
				ReleaseNotes:  "## Fixes\n- faster merges",
			},
		},
		applyErr: domain.ErrUpdateInProgress,
	}
	router := newTestRouter(t, &fakeDownloads{}, updates, nil)

	w := do(t, router, http.MethodGet, "/api/v1/update/check", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["available"])
	assert.Contains(t, body["release_notes_html"], "<h2>Fixes</h2>")

	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/api/v1/update/apply", nil).Code)

	updates.applyErr = nil
	updates.apply = domain.ApplyResult{
		Files:     []domain.FileOutcome{{Name: "flare", Updated: true}, {Name: "VERSION", Restored: true}},
		ErrorKind: domain.ErrorPartialApplyFailure,
	}
	w = do(t, router, http.MethodPost, "/api/v1/update/apply", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "failed files: VERSION")
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, &fakeDownloads{}, &fakeUpdates{}, nil)

	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), domain.CurrentVersion)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready", nil).Code)

	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/nope", nil).Code)
}

func TestLogEndpoints(t *testing.T) {
	dir := t.TempDir()
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	ml.LogUpdateEvent("Update check completed", zap.Bool("available", false))
	require.NoError(t, ml.Close())

	exe, _ := os.Executable()
	router := SetupRouter(Services{
		Downloads: &fakeDownloads{},
		Events:    app.NewEventHub(),
		Updates:   &fakeUpdates{},
		Tool:      &domain.ToolConfig{Binary: exe},
		LogsDir:   dir,
	}, zap.NewNop())

	w := do(t, router, http.MethodGet, "/api/v1/logs/update", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Update check completed")

	w = do(t, router, http.MethodGet, "/api/v1/logs/update/search?q=check", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/logs/queue", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/logs/update?date=yesterday", nil).Code)

	w = do(t, router, http.MethodGet, "/api/v1/logs/categories", nil)
	assert.Contains(t, w.Body.String(), "session")
}

func TestEventStream(t *testing.T) {
	hub := app.NewEventHub()
	server := httptest.NewServer(newTestRouter(t, &fakeDownloads{}, &fakeUpdates{}, hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	percent := 12.5
	hub.Publish(domain.ProgressEvent{DownloadID: "abc", Kind: domain.EventProgress, Percent: &percent})
	hub.Publish(domain.ProgressEvent{DownloadID: "abc", Kind: domain.EventFinished, Result: &domain.DownloadResult{Success: true}})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first, second domain.ProgressEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, domain.EventProgress, first.Kind)
	assert.Equal(t, 12.5, *first.Percent)
	assert.Equal(t, domain.EventFinished, second.Kind)
	assert.True(t, second.Result.Success)
}
