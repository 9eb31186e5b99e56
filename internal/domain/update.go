package domain

import (
	"context"
	"fmt"
	"strings"
)

// AssetLocation is one downloadable file named by a release
type AssetLocation struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UpdateManifest describes the latest release. Immutable once fetched.
type UpdateManifest struct {
	LatestVersion  VersionInfo     `json:"latest_version"`
	Tag            string          `json:"tag"`
	ReleaseNotes   string          `json:"release_notes"`
	ReleaseURL     string          `json:"release_url,omitempty"`
	AssetLocations []AssetLocation `json:"asset_locations"`
}

// CheckResult is the outcome of an update check
type CheckResult struct {
	Available bool            `json:"available"`
	Current   VersionInfo     `json:"current"`
	Manifest  *UpdateManifest `json:"manifest,omitempty"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// FileBackupRecord remembers where a managed file was backed up to
type FileBackupRecord struct {
	OriginalPath  string
	BackupPath    string
	ExistedBefore bool
}

// FileOutcome is the per-file part of an apply result
type FileOutcome struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Updated   bool      `json:"updated"`
	Restored  bool      `json:"restored"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// ApplyResult summarizes an update apply
type ApplyResult struct {
	Files           []FileOutcome `json:"files"`
	RestartRequired bool          `json:"restart_required"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	Message         string        `json:"message,omitempty"`
}

// Succeeded reports whether every managed file was updated
func (r ApplyResult) Succeeded() bool {
	return r.ErrorKind == ErrorNone
}

// FailedFiles returns the names of files that could not be updated
func (r ApplyResult) FailedFiles() []string {
	var names []string
	for _, f := range r.Files {
		if !f.Updated {
			names = append(names, f.Name)
		}
	}
	return names
}

// Summary returns the single human-readable line for the apply outcome
func (r ApplyResult) Summary() string {
	switch r.ErrorKind {
	case ErrorNone:
		return fmt.Sprintf("Update applied to %d files, restart to use the new version", len(r.Files))
	case ErrorPartialApplyFailure:
		return fmt.Sprintf("Update partially applied, failed files: %s", strings.Join(r.FailedFiles(), ", "))
	default:
		return fmt.Sprintf("Update not applied: %s", r.Message)
	}
}

// ReleaseSource looks up the latest release
type ReleaseSource interface {
	Check(ctx context.Context, current VersionInfo) CheckResult
}

// UpdateInstaller replaces managed files from a manifest
type UpdateInstaller interface {
	Apply(ctx context.Context, manifest *UpdateManifest) ApplyResult
}
