package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain flag", "--newline", "--newline"},
		{"empty", "", "''"},
		{"plain path", "/tmp/out/video.mp4", "/tmp/out/video.mp4"},
		{"path with spaces", "/tmp/my downloads", "'/tmp/my downloads'"},
		{"format selector", "bestvideo[height<=720]+bestaudio/best[height<=720]/best", "'bestvideo[height<=720]+bestaudio/best[height<=720]/best'"},
		{"output template", "/tmp/%(title)s.%(ext)s", "'/tmp/%(title)s.%(ext)s'"},
		{"single quote", "/tmp/it's", `'/tmp/it'"'"'s'`},
		{"dollar", "$HOME", "'$HOME'"},
		{"sub langs glob", "en.*", "'en.*'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscape(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	tests := []struct {
		name     string
		binary   string
		args     []string
		expected string
	}{
		{
			name:     "simple command",
			binary:   "yt-dlp",
			args:     []string{"--version"},
			expected: "yt-dlp --version",
		},
		{
			name:     "binary with space",
			binary:   "/opt/my apps/yt-dlp",
			args:     []string{"--version"},
			expected: "'/opt/my apps/yt-dlp' --version",
		},
		{
			name:     "URL with query params",
			binary:   "yt-dlp",
			args:     []string{"-f", "bestaudio", "https://example.com/watch?v=1&t=2"},
			expected: "yt-dlp -f bestaudio 'https://example.com/watch?v=1&t=2'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscapeCommand(tt.binary, tt.args...))
		})
	}
}
