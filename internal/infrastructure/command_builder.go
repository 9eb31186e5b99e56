package infrastructure

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/flare-go/internal/domain"
)

// OutputTemplate is passed to the tool verbatim; it resolves the placeholders itself
const OutputTemplate = "%(title)s.%(ext)s"

var (
	videoHeightPattern  = regexp.MustCompile(`^(\d+)[pP]?$`)
	videoKPattern       = regexp.MustCompile(`^\d+[kK]$`)
	audioBitratePattern = regexp.MustCompile(`^(\d+)\s*(?:[kK](?:bps)?)?$`)
)

// CommandBuilder turns download requests into yt-dlp argument lists
type CommandBuilder struct {
	config *domain.ToolConfig
}

// NewCommandBuilder creates a new command builder
func NewCommandBuilder(config *domain.ToolConfig) *CommandBuilder {
	return &CommandBuilder{config: config}
}

// Build validates the request and returns the ordered argument list
func (b *CommandBuilder) Build(req domain.DownloadRequest) ([]string, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	opts, err := NewDownloadOptions(req, b.config)
	if err != nil {
		return nil, err
	}

	return BuildArgs(req, opts), nil
}

// ValidateRequest checks a request without side effects
func ValidateRequest(req domain.DownloadRequest) error {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return validationError("invalid URL %q", req.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validationError("URL must use http or https: %q", req.URL)
	}
	if u.Host == "" {
		return validationError("URL has no host: %q", req.URL)
	}

	if req.OutputDir == "" {
		return validationError("output directory is required")
	}
	info, err := os.Stat(req.OutputDir)
	if err != nil {
		return validationError("output directory %s does not exist", req.OutputDir)
	}
	if !info.IsDir() {
		return validationError("output path %s is not a directory", req.OutputDir)
	}

	if !domain.ValidateMediaType(req.MediaType) {
		return validationError("unknown media type %q", req.MediaType)
	}
	if req.Container != "" && !domain.ValidateContainer(req.MediaType, req.Container) {
		return validationError("container %q is not available for %s", req.Container, req.MediaType)
	}
	if _, err := parseQuality(req.MediaType, req.Quality); err != nil {
		return err
	}

	for flag, enabled := range req.Flags {
		if enabled && !domain.ValidateFlag(flag) {
			return validationError("unknown option %q", flag)
		}
	}

	return nil
}

// NewDownloadOptions derives the normalized options for a validated request
func NewDownloadOptions(req domain.DownloadRequest, config *domain.ToolConfig) (domain.DownloadOptions, error) {
	limit, err := parseQuality(req.MediaType, req.Quality)
	if err != nil {
		return domain.DownloadOptions{}, err
	}

	container := strings.ToLower(req.Container)
	if container == "" {
		container = domain.DefaultContainer(req.MediaType)
	}

	opts := domain.DownloadOptions{
		OutputTemplate: filepath.Join(req.OutputDir, OutputTemplate),
		EmbedThumbnail: req.HasFlag(domain.FlagThumbnail),
		EmbedMetadata:  req.HasFlag(domain.FlagMetadata),
		AllowPlaylist:  req.HasFlag(domain.FlagPlaylist),
	}

	switch req.MediaType {
	case domain.MediaAudio:
		opts.AudioFormat = container
		opts.FormatSelector = "bestaudio"
		if limit > 0 {
			opts.FormatSelector = fmt.Sprintf("bestaudio[abr<=%d]/bestaudio", limit)
			opts.AudioQuality = fmt.Sprintf("%dK", limit)
		}
	default:
		opts.MergeFormat = container
		opts.WriteSubtitles = req.HasFlag(domain.FlagSubtitles)
		opts.FormatSelector = "bestvideo+bestaudio/best"
		if limit > 0 {
			opts.FormatSelector = fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", limit, limit)
		}
	}

	if config != nil {
		if config.CookieFile != "" && fileExists(config.CookieFile) {
			opts.CookieFile = config.CookieFile
		}
		opts.ExtraArgs = append([]string(nil), config.ExtraArgs...)
	}

	return opts, nil
}

// BuildArgs orders the arguments for the tool. Pure.
func BuildArgs(req domain.DownloadRequest, opts domain.DownloadOptions) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-warnings",
		"--restrict-filenames",
	}

	if opts.AllowPlaylist {
		args = append(args, "--yes-playlist")
	} else {
		args = append(args, "--no-playlist")
	}

	args = append(args, "-f", opts.FormatSelector)

	if opts.AudioFormat != "" {
		args = append(args, "-x", "--audio-format", opts.AudioFormat)
		if opts.AudioQuality != "" {
			args = append(args, "--audio-quality", opts.AudioQuality)
		}
	}
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}

	if opts.WriteSubtitles {
		args = append(args, "--write-subs", "--sub-langs", "en.*", "--embed-subs")
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}

	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	args = append(args, opts.ExtraArgs...)

	args = append(args, "-o", opts.OutputTemplate, strings.TrimSpace(req.URL))
	return args
}

// parseQuality returns the height (video) or bitrate (audio) ceiling, 0 for unconstrained
func parseQuality(mediaType domain.MediaType, quality string) (int, error) {
	q := strings.TrimSpace(quality)
	if q == "" || strings.EqualFold(q, domain.QualityBest) {
		return 0, nil
	}

	switch mediaType {
	case domain.MediaVideo:
		if videoKPattern.MatchString(q) {
			return 0, nil
		}
		if m := videoHeightPattern.FindStringSubmatch(q); m != nil {
			if h, err := strconv.Atoi(m[1]); err == nil && h > 0 {
				return h, nil
			}
		}
	case domain.MediaAudio:
		if m := audioBitratePattern.FindStringSubmatch(q); m != nil {
			if br, err := strconv.Atoi(m[1]); err == nil && br > 0 {
				return br, nil
			}
		}
	}

	return 0, validationError("unrecognised quality %q for %s", quality, mediaType)
}

func validationError(format string, args ...interface{}) error {
	return domain.NewError(domain.ErrorValidation, fmt.Sprintf(format, args...), nil)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
