package infrastructure

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/flare-go/internal/domain"
)

// MaxLogLineLength bounds the message of LogLine events
const MaxLogLineLength = 200

var (
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	speedPattern   = regexp.MustCompile(`\bat\s+([\d.]+\s*\w+/s)`)
	etaPattern     = regexp.MustCompile(`ETA\s+([\d:]+)`)
	looseNumber    = regexp.MustCompile(`[\d.]+\s*%`)
)

// Lines the caller sees even though they carry no percentage
var logLineMarkers = []string{
	"[download] Destination:",
	"[Merger]",
	"Merging formats",
	"[ExtractAudio]",
	"Extracting",
	"[download] Downloading",
	"[info] Downloading",
	"ERROR:",
}

// TextProgressParser reads yt-dlp's human-readable progress output.
// Stateless and safe for concurrent use.
type TextProgressParser struct{}

// NewTextProgressParser creates a new parser
func NewTextProgressParser() *TextProgressParser {
	return &TextProgressParser{}
}

// Parse turns one line into a Progress or LogLine event, or nothing
func (p *TextProgressParser) Parse(line string) (domain.ProgressEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.ProgressEvent{}, false
	}

	if m := percentPattern.FindStringSubmatch(line); m != nil {
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil || percent < 0 || percent > 100 {
			return domain.ProgressEvent{}, false
		}

		event := domain.ProgressEvent{
			Kind:    domain.EventProgress,
			Time:    time.Now(),
			Percent: &percent,
		}
		if s := speedPattern.FindStringSubmatch(line); s != nil {
			event.Speed = strings.ReplaceAll(s[1], " ", "")
		}
		if e := etaPattern.FindStringSubmatch(line); e != nil {
			if eta, ok := parseETA(e[1]); ok {
				event.ETA = &eta
			}
		}
		return event, true
	}

	if isLogLine(line) {
		return domain.ProgressEvent{
			Kind:    domain.EventLogLine,
			Time:    time.Now(),
			Message: TruncateLine(line, MaxLogLineLength),
		}, true
	}

	return domain.ProgressEvent{}, false
}

// IsAnomaly reports a line that looks like progress but produced no event
func (p *TextProgressParser) IsAnomaly(line string) bool {
	if !looseNumber.MatchString(line) {
		return false
	}
	_, ok := p.Parse(line)
	return !ok
}

// IsErrorLine reports whether the tool printed an error
func IsErrorLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "ERROR:")
}

// DestinationOf extracts the file path from a destination or merger line
func DestinationOf(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if _, after, ok := strings.Cut(line, "[download] Destination: "); ok {
		return strings.TrimSpace(after), true
	}
	if _, after, ok := strings.Cut(line, `Merging formats into "`); ok {
		return strings.TrimSuffix(strings.TrimSpace(after), `"`), true
	}
	return "", false
}

func isLogLine(line string) bool {
	for _, marker := range logLineMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// parseETA accepts SS, MM:SS or HH:MM:SS
func parseETA(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}

	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}

// TruncateLine shortens s to at most max runes, marking the cut with "..."
func TruncateLine(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
