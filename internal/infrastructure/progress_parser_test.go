package infrastructure

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/flare-go/internal/domain"
)

func TestTextProgressParser_Progress(t *testing.T) {
	parser := NewTextProgressParser()

	event, ok := parser.Parse("23.5% of 10MiB at 1.2MiB/s ETA 00:07")
	require.True(t, ok)
	assert.Equal(t, domain.EventProgress, event.Kind)
	require.NotNil(t, event.Percent)
	assert.Equal(t, 23.5, *event.Percent)
	assert.Equal(t, "1.2MiB/s", event.Speed)
	require.NotNil(t, event.ETA)
	assert.Equal(t, 7*time.Second, *event.ETA)
}

func TestTextProgressParser_ProgressVariants(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		percent float64
		speed   string
		eta     *time.Duration
	}{
		{
			name:    "tool line",
			line:    "[download]  45.0% of ~ 120.50MiB at  3.25MiB/s ETA 00:20 (frag 3/10)",
			percent: 45,
			speed:   "3.25MiB/s",
			eta:     durationPtr(20 * time.Second),
		},
		{
			name:    "hours",
			line:    "[download]   1.0% of 4.00GiB at 512.00KiB/s ETA 02:15:30",
			percent: 1,
			speed:   "512.00KiB/s",
			eta:     durationPtr(2*time.Hour + 15*time.Minute + 30*time.Second),
		},
		{
			name:    "no speed or eta",
			line:    "[download] 100% of 10.00MiB in 00:03",
			percent: 100,
		},
		{
			name:    "unknown speed",
			line:    "[download]  12.3% of 10.00MiB at Unknown B/s ETA Unknown",
			percent: 12.3,
		},
	}

	parser := NewTextProgressParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := parser.Parse(tt.line)
			require.True(t, ok)
			assert.Equal(t, domain.EventProgress, event.Kind)
			assert.Equal(t, tt.percent, *event.Percent)
			assert.Equal(t, tt.speed, event.Speed)
			assert.Equal(t, tt.eta, event.ETA)
		})
	}
}

func TestTextProgressParser_LogLines(t *testing.T) {
	lines := []string{
		"[download] Destination: /tmp/out/My_Video.f137.mp4",
		`[Merger] Merging formats into "/tmp/out/My_Video.mp4"`,
		"[ExtractAudio] Destination: /tmp/out/song.mp3",
		"[info] Downloading 1 format(s): 137+140",
		"[download] Downloading playlist: Mix",
		"ERROR: [generic] Unsupported URL: https://example.com/v",
	}

	parser := NewTextProgressParser()
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			event, ok := parser.Parse(line)
			require.True(t, ok)
			assert.Equal(t, domain.EventLogLine, event.Kind)
			assert.Nil(t, event.Percent)
			assert.Equal(t, line, event.Message)
		})
	}
}

func TestTextProgressParser_DroppedLines(t *testing.T) {
	parser := NewTextProgressParser()

	for _, line := range []string{
		"",
		"   ",
		"[youtube] abc123: Downloading webpage",
		"[youtube] abc123: Downloading player 1234",
		"Deleting original file /tmp/out/x.webm",
		"150% of something",
		"999999999999999999999999999999999999.5%",
	} {
		_, ok := parser.Parse(line)
		assert.False(t, ok, line)
	}
}

func TestTextProgressParser_TruncatesLongLogLines(t *testing.T) {
	parser := NewTextProgressParser()
	line := "[download] Destination: /tmp/" + strings.Repeat("a", 400) + ".mp4"

	event, ok := parser.Parse(line)
	require.True(t, ok)
	assert.Len(t, []rune(event.Message), MaxLogLineLength)
	assert.True(t, strings.HasSuffix(event.Message, "..."))
}

func TestTextProgressParser_IsAnomaly(t *testing.T) {
	parser := NewTextProgressParser()

	assert.True(t, parser.IsAnomaly("[download] 150.0% of 10MiB"))
	assert.False(t, parser.IsAnomaly("[download]  50.0% of 10MiB"))
	assert.False(t, parser.IsAnomaly("[youtube] abc: Downloading webpage"))
}

func TestDestinationOf(t *testing.T) {
	dest, ok := DestinationOf("[download] Destination: /tmp/out/a.mp4")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/out/a.mp4", dest)

	dest, ok = DestinationOf(`[Merger] Merging formats into "/tmp/out/b.mkv"`)
	assert.True(t, ok)
	assert.Equal(t, "/tmp/out/b.mkv", dest)

	_, ok = DestinationOf("[info] nothing")
	assert.False(t, ok)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", TruncateLine("short", 10))
	assert.Equal(t, "abcdefg...", TruncateLine("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", TruncateLine("abcdef", 2))
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
