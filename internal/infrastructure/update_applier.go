package infrastructure

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yourusername/flare-go/internal/domain"
	"go.uber.org/zap"
)

const maxAssetSize = 512 << 20

// UpdateApplier replaces the managed files of the installation from a release.
// Each file is backed up first and restored on its own if writing it fails.
type UpdateApplier struct {
	fs           afero.Fs
	config       *domain.UpdateConfig
	client       *http.Client
	logger       *zap.Logger
	maxAssetSize int64
}

// NewUpdateApplier creates an applier working on the OS filesystem
func NewUpdateApplier(config *domain.UpdateConfig, logger *zap.Logger) *UpdateApplier {
	return NewUpdateApplierWithFS(afero.NewOsFs(), config, &http.Client{Timeout: config.FetchTimeout}, logger)
}

// NewUpdateApplierWithFS creates an applier on the given filesystem and HTTP client
func NewUpdateApplierWithFS(fs afero.Fs, config *domain.UpdateConfig, client *http.Client, logger *zap.Logger) *UpdateApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateApplier{
		fs:           fs,
		config:       config,
		client:       client,
		logger:       logger,
		maxAssetSize: maxAssetSize,
	}
}

// Apply fetches the manifest's assets and installs every managed file it contains
func (a *UpdateApplier) Apply(ctx context.Context, manifest *domain.UpdateManifest) domain.ApplyResult {
	var result domain.ApplyResult

	if manifest == nil || len(manifest.AssetLocations) == 0 {
		result.ErrorKind = domain.ErrorNetworkFailure
		result.Message = "release lists no downloadable assets"
		return result
	}

	if err := a.resetDir(a.config.BackupDir); err != nil {
		result.ErrorKind = domain.ErrorPartialApplyFailure
		result.Message = fmt.Sprintf("failed to prepare backup directory: %v", err)
		return result
	}
	if err := a.resetDir(a.config.TempDir); err != nil {
		result.ErrorKind = domain.ErrorPartialApplyFailure
		result.Message = fmt.Sprintf("failed to prepare staging directory: %v", err)
		return result
	}
	defer func() {
		if err := a.fs.RemoveAll(a.config.TempDir); err != nil {
			a.logger.Warn("Failed to remove staging directory", zap.String("path", a.config.TempDir), zap.Error(err))
		}
	}()

	staged, fetchErrs := a.stage(ctx, manifest.AssetLocations)

	for _, name := range a.config.ManagedFiles {
		stagedPath, ok := staged[name]
		if !ok {
			msg := "not present in release assets"
			if len(fetchErrs) > 0 {
				msg = strings.Join(fetchErrs, "; ")
			}
			result.Files = append(result.Files, domain.FileOutcome{
				Name:      name,
				Path:      filepath.Join(a.config.InstallDir, name),
				ErrorKind: domain.ErrorNetworkFailure,
				Message:   msg,
			})
			continue
		}
		result.Files = append(result.Files, a.replaceFile(name, stagedPath))
	}

	updated := 0
	for _, f := range result.Files {
		if f.Updated {
			updated++
		}
	}
	result.RestartRequired = updated > 0

	switch {
	case len(staged) == 0:
		result.ErrorKind = domain.ErrorNetworkFailure
		result.Message = strings.Join(fetchErrs, "; ")
	case updated < len(result.Files):
		result.ErrorKind = domain.ErrorPartialApplyFailure
		result.Message = fmt.Sprintf("%d of %d files failed", len(result.Files)-updated, len(result.Files))
	}

	a.logger.Info("Update applied",
		zap.String("version", manifest.LatestVersion.String()),
		zap.Int("updated", updated),
		zap.Int("managed", len(result.Files)),
		zap.String("error_kind", string(result.ErrorKind)))

	return result
}

// stage downloads every asset into the staging directory and returns managed name -> staged path
func (a *UpdateApplier) stage(ctx context.Context, assets []domain.AssetLocation) (map[string]string, []string) {
	staged := make(map[string]string)
	var errs []string

	for _, asset := range assets {
		name := path.Base(filepath.ToSlash(asset.Filename))
		dest := filepath.Join(a.config.TempDir, "download", name)

		if err := a.fetch(ctx, asset.URL, dest); err != nil {
			a.logger.Warn("Failed to fetch update asset", zap.String("url", asset.URL), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if strings.HasSuffix(strings.ToLower(name), ".zip") && !a.isManaged(name) {
			if err := a.extract(dest, filepath.Join(a.config.TempDir, "extract"), staged); err != nil {
				a.logger.Warn("Failed to extract update archive", zap.String("file", name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}

		if a.isManaged(name) {
			staged[name] = dest
		}
	}

	return staged, errs
}

func (a *UpdateApplier) fetch(ctx context.Context, url, dest string) error {
	if a.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.FetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if a.config.UserAgent != "" {
		req.Header.Set("User-Agent", a.config.UserAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &httpStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := a.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	f, err := a.fs.Create(dest)
	if err != nil {
		return err
	}
	if err := a.writeLimited(f, resp.Body); err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	return nil
}

// writeLimited copies src into f and closes it, failing when src is larger than maxAssetSize
func (a *UpdateApplier) writeLimited(f io.WriteCloser, src io.Reader) error {
	n, err := io.Copy(f, io.LimitReader(src, a.maxAssetSize+1))
	if err == nil && n > a.maxAssetSize {
		err = fmt.Errorf("asset larger than %d bytes", a.maxAssetSize)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// extract copies out only the archive entries whose base name is a managed file
func (a *UpdateApplier) extract(archivePath, destDir string, staged map[string]string) error {
	f, err := a.fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("invalid archive: %w", err)
	}

	if err := a.fs.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := path.Base(entry.Name)
		if !a.isManaged(name) {
			continue
		}
		if _, seen := staged[name]; seen {
			continue
		}

		dest := filepath.Join(destDir, name)
		if err := a.extractEntry(entry, dest); err != nil {
			return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
		}
		staged[name] = dest
	}
	return nil
}

func (a *UpdateApplier) extractEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := a.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	return a.writeLimited(out, rc)
}

// replaceFile backs up the target, writes <target>.new and renames it into place.
// Any failure after the backup restores the previous state of this file only.
func (a *UpdateApplier) replaceFile(name, stagedPath string) domain.FileOutcome {
	target := filepath.Join(a.config.InstallDir, name)
	outcome := domain.FileOutcome{Name: name, Path: target}

	record, err := a.backup(name, target)
	if err != nil {
		outcome.ErrorKind = domain.ErrorPartialApplyFailure
		outcome.Message = fmt.Sprintf("backup failed: %v", err)
		a.logger.Error("Failed to back up managed file", zap.String("file", target), zap.Error(err))
		return outcome
	}

	if err := a.install(stagedPath, target); err != nil {
		outcome.ErrorKind = domain.ErrorPartialApplyFailure
		outcome.Message = err.Error()

		if rerr := a.restore(record); rerr != nil {
			outcome.Message = fmt.Sprintf("%v; restore failed: %v", err, rerr)
			a.logger.Error("Failed to restore managed file", zap.String("file", target), zap.Error(rerr))
		} else {
			outcome.Restored = true
		}
		a.logger.Warn("Managed file not updated", zap.String("file", target), zap.Error(err))
		return outcome
	}

	outcome.Updated = true
	return outcome
}

func (a *UpdateApplier) backup(name, target string) (domain.FileBackupRecord, error) {
	record := domain.FileBackupRecord{
		OriginalPath: target,
		BackupPath:   filepath.Join(a.config.BackupDir, name+".backup"),
	}

	if _, err := a.fs.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}
		return record, err
	}

	record.ExistedBefore = true
	return record, a.copyFile(target, record.BackupPath)
}

func (a *UpdateApplier) install(stagedPath, target string) error {
	if err := a.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	tmp := target + ".new"
	if err := a.copyFile(stagedPath, tmp); err != nil {
		a.fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := a.fs.Rename(tmp, target); err != nil {
		a.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

func (a *UpdateApplier) restore(record domain.FileBackupRecord) error {
	if !record.ExistedBefore {
		if err := a.fs.Remove(record.OriginalPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return a.copyFile(record.BackupPath, record.OriginalPath)
}

// copyFile copies src to dst keeping the source permissions
func (a *UpdateApplier) copyFile(src, dst string) error {
	info, err := a.fs.Stat(src)
	if err != nil {
		return err
	}

	in, err := a.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := a.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (a *UpdateApplier) resetDir(dir string) error {
	if err := a.fs.RemoveAll(dir); err != nil {
		return err
	}
	return a.fs.MkdirAll(dir, 0755)
}

func (a *UpdateApplier) isManaged(name string) bool {
	for _, m := range a.config.ManagedFiles {
		if m == name {
			return true
		}
	}
	return false
}
