//go:build integration && !windows

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/flare-go/api"
	"github.com/yourusername/flare-go/internal/app"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"github.com/yourusername/flare-go/pkg/logger"
)

type testServer struct {
	*httptest.Server
	manager *app.DownloadManager
	config  *domain.Config
}

// writeTool installs a shell script standing in for yt-dlp
func writeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func setupTestServer(t *testing.T, toolScript string) *testServer {
	t.Helper()
	dir := t.TempDir()

	config := domain.DefaultConfig()
	config.Download.OutputDir = filepath.Join(dir, "out")
	config.Download.LogsDir = filepath.Join(dir, "logs")
	config.Download.DatabasePath = filepath.Join(dir, "history.db")
	config.Tool.Binary = writeTool(t, toolScript)
	config.Tool.CookieFile = ""
	config.Notification.Enabled = false

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Download.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "debug", LogsDir: config.Download.LogsDir})
	require.NoError(t, err)
	t.Cleanup(func() { multiLog.Close() })

	log := logger.NewDefault()
	manager := app.NewDownloadManager(repo, nil, nil, config, log, multiLog)

	router := api.SetupRouter(api.Services{
		Downloads: manager,
		Events:    manager,
		Tool:      &config.Tool,
		LogsDir:   config.Download.LogsDir,
	}, log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, manager: manager, config: config}
}

func (s *testServer) postJSON(t *testing.T, path string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewBuffer(data))
	require.NoError(t, err)
	return resp
}

func (s *testServer) getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// waitForStatus polls the history record until it reaches a terminal status
func (s *testServer) waitForStatus(t *testing.T, id string) *domain.Download {
	t.Helper()
	var download domain.Download
	require.Eventually(t, func() bool {
		s.getJSON(t, "/api/v1/downloads/"+id, &download)
		return download.IsTerminal()
	}, 10*time.Second, 20*time.Millisecond)
	return &download
}
