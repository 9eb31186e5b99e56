package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

// SourceArchiveName is the filename given to a release's generic source archive
const SourceArchiveName = "source.zip"

const maxMetadataSize = 1 << 20

var versionAssignPattern = regexp.MustCompile(`__version__\s*=\s*['"]([^'"]+)['"]`)

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Name       string        `json:"name"`
	Body       string        `json:"body"`
	HTMLURL    string        `json:"html_url"`
	ZipballURL string        `json:"zipball_url"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// httpStatusError is a response that arrived with a non-2xx status
type httpStatusError struct {
	URL        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// UpdateChecker asks the release source whether a newer version exists
type UpdateChecker struct {
	config *domain.UpdateConfig
	client *http.Client
	logger *zap.Logger
}

// NewUpdateChecker creates a checker bounded by the configured check timeout
func NewUpdateChecker(config *domain.UpdateConfig, logger *zap.Logger) *UpdateChecker {
	return NewUpdateCheckerWithClient(config, &http.Client{Timeout: config.CheckTimeout}, logger)
}

// NewUpdateCheckerWithClient creates a checker using the given HTTP client
func NewUpdateCheckerWithClient(config *domain.UpdateConfig, client *http.Client, logger *zap.Logger) *UpdateChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateChecker{
		config: config,
		client: client,
		logger: logger,
	}
}

// Check fetches the latest release and compares it with current.
// Failures never escape: they come back as Available=false with a NetworkFailure kind.
func (c *UpdateChecker) Check(ctx context.Context, current domain.VersionInfo) domain.CheckResult {
	result := domain.CheckResult{Current: current}

	if c.config.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CheckTimeout)
		defer cancel()
	}

	manifest, err := c.fetchRelease(ctx)
	var statusErr *httpStatusError
	if err != nil && errors.As(err, &statusErr) && c.config.FallbackVersionURL != "" {
		c.logger.Warn("Release metadata unavailable, trying version descriptor",
			zap.Int("status", statusErr.StatusCode),
			zap.String("url", c.config.FallbackVersionURL))
		manifest, err = c.fetchFallback(ctx)
	}

	if err != nil {
		c.logger.Warn("Update check failed", zap.Error(err))
		result.ErrorKind = domain.ErrorNetworkFailure
		result.Message = err.Error()
		return result
	}

	result.Manifest = manifest
	result.Available = manifest.LatestVersion.IsNewerThan(current)

	c.logger.Info("Update check completed",
		zap.String("current", current.String()),
		zap.String("latest", manifest.LatestVersion.String()),
		zap.Bool("available", result.Available))

	return result
}

func (c *UpdateChecker) fetchRelease(ctx context.Context) (*domain.UpdateManifest, error) {
	body, err := c.get(ctx, c.config.ReleaseURL, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to decode release metadata: %w", err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release metadata has no tag_name")
	}

	return &domain.UpdateManifest{
		LatestVersion:  domain.ParseVersion(release.TagName),
		Tag:            release.TagName,
		ReleaseNotes:   release.Body,
		ReleaseURL:     release.HTMLURL,
		AssetLocations: c.selectAssets(release),
	}, nil
}

// selectAssets picks the first packaged asset, falling back to the source archive
func (c *UpdateChecker) selectAssets(release githubRelease) []domain.AssetLocation {
	suffix := strings.ToLower(c.config.PackageSuffix)
	for _, asset := range release.Assets {
		if asset.BrowserDownloadURL == "" {
			continue
		}
		if suffix == "" || strings.HasSuffix(strings.ToLower(asset.Name), suffix) {
			return []domain.AssetLocation{{Filename: asset.Name, URL: asset.BrowserDownloadURL}}
		}
	}

	if release.ZipballURL != "" {
		return []domain.AssetLocation{{Filename: SourceArchiveName, URL: release.ZipballURL}}
	}
	return nil
}

// fetchFallback reads a bare version descriptor and points every managed file at its raw URL
func (c *UpdateChecker) fetchFallback(ctx context.Context) (*domain.UpdateManifest, error) {
	body, err := c.get(ctx, c.config.FallbackVersionURL, "text/plain")
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(string(body))
	if m := versionAssignPattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	} else if line, _, ok := strings.Cut(raw, "\n"); ok {
		raw = strings.TrimSpace(line)
	}

	manifest := &domain.UpdateManifest{
		LatestVersion: domain.ParseVersion(raw),
		Tag:           raw,
	}
	base := strings.TrimRight(c.config.RawBaseURL, "/")
	if base != "" {
		for _, name := range c.config.ManagedFiles {
			manifest.AssetLocations = append(manifest.AssetLocations, domain.AssetLocation{
				Filename: name,
				URL:      base + "/" + name,
			})
		}
	}
	return manifest, nil
}

func (c *UpdateChecker) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &httpStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

var notesMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// RenderReleaseNotes converts markdown release notes to HTML
func RenderReleaseNotes(notes string) (string, error) {
	var buf bytes.Buffer
	if err := notesMarkdown.Convert([]byte(notes), &buf); err != nil {
		return "", fmt.Errorf("failed to render release notes: %w", err)
	}
	return buf.String(), nil
}
