package domain

import "strings"

// MediaType represents what kind of media a download produces
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Flag is an optional post-processing switch on a download request
type Flag string

const (
	FlagSubtitles Flag = "subtitles"
	FlagThumbnail Flag = "thumbnail"
	FlagMetadata  Flag = "metadata"
	FlagPlaylist  Flag = "playlist"
)

// QualityBest never constrains the format selector
const QualityBest = "Best"

var (
	videoContainers = []string{"mp4", "webm", "mkv"}
	audioContainers = []string{"mp3", "m4a", "wav", "flac", "opus"}
	knownFlags      = []Flag{FlagSubtitles, FlagThumbnail, FlagMetadata, FlagPlaylist}
)

// DownloadRequest is what a caller submits to start one download.
// It is treated as immutable once submitted.
type DownloadRequest struct {
	URL       string        `json:"url"`
	OutputDir string        `json:"output_dir"`
	MediaType MediaType     `json:"media_type"`
	Container string        `json:"container"`
	Quality   string        `json:"quality"`
	Flags     map[Flag]bool `json:"flags,omitempty"`
}

// HasFlag reports whether the flag is set on the request
func (r DownloadRequest) HasFlag(f Flag) bool {
	return r.Flags[f]
}

// EnabledFlags returns the set flags in a stable order
func (r DownloadRequest) EnabledFlags() []Flag {
	var flags []Flag
	for _, f := range knownFlags {
		if r.Flags[f] {
			flags = append(flags, f)
		}
	}
	return flags
}

// DownloadOptions is the normalized form of a request used to build arguments.
// Built fresh per attempt.
type DownloadOptions struct {
	FormatSelector string
	AudioFormat    string
	AudioQuality   string
	MergeFormat    string
	OutputTemplate string
	WriteSubtitles bool
	EmbedThumbnail bool
	EmbedMetadata  bool
	AllowPlaylist  bool
	CookieFile     string
	ExtraArgs      []string
}

// ValidateMediaType checks if a media type is valid
func ValidateMediaType(mediaType MediaType) bool {
	return mediaType == MediaVideo || mediaType == MediaAudio
}

// ValidateContainer checks that the container is produced by the media type
func ValidateContainer(mediaType MediaType, container string) bool {
	var allowed []string
	switch mediaType {
	case MediaVideo:
		allowed = videoContainers
	case MediaAudio:
		allowed = audioContainers
	}
	for _, c := range allowed {
		if strings.EqualFold(c, container) {
			return true
		}
	}
	return false
}

// ValidateFlag checks if a flag is known
func ValidateFlag(f Flag) bool {
	for _, known := range knownFlags {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFlags converts flag names into a request flag set
func ParseFlags(names []string) map[Flag]bool {
	flags := make(map[Flag]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		flags[Flag(name)] = true
	}
	return flags
}

// DefaultContainer returns the container used when a request leaves it empty
func DefaultContainer(mediaType MediaType) string {
	if mediaType == MediaAudio {
		return "mp3"
	}
	return "mp4"
}
