package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/flare-go/internal/domain"
)

var (
	downloadAudio     bool
	downloadType      string
	downloadContainer string
	downloadQuality   string
	downloadOutput    string
	downloadFlags     []string
)

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video or its audio track",
	Long: `Download runs yt-dlp in the foreground and prints its progress.
Press Ctrl+C to cancel; the partial download is left to yt-dlp.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().BoolVarP(&downloadAudio, "audio", "a", false, "Extract audio only (same as --type audio)")
	downloadCmd.Flags().StringVarP(&downloadType, "type", "t", "", "Media type: video or audio (default from config)")
	downloadCmd.Flags().StringVar(&downloadContainer, "container", "", "Output container, e.g. mp4, mkv, mp3, m4a")
	downloadCmd.Flags().StringVarP(&downloadQuality, "quality", "q", "", "Video height such as 1080p, or best (default from config)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output directory (default from config)")
	downloadCmd.Flags().StringSliceVar(&downloadFlags, "with", nil, "Extras to enable: subtitles, thumbnail, metadata, playlist")
}

func runDownload(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	mediaType := domain.MediaType(downloadType)
	if downloadAudio {
		mediaType = domain.MediaAudio
	}

	for _, name := range downloadFlags {
		if !domain.ValidateFlag(domain.Flag(name)) {
			return fmt.Errorf("unknown extra %q", name)
		}
	}

	events, unsubscribe := rt.downloadMgr.Subscribe()
	defer unsubscribe()

	download, err := rt.downloadMgr.Submit(domain.DownloadRequest{
		URL:       args[0],
		OutputDir: downloadOutput,
		MediaType: mediaType,
		Container: downloadContainer,
		Quality:   downloadQuality,
		Flags:     domain.ParseFlags(downloadFlags),
	})
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	progress := newProgressPrinter(cmd.OutOrStdout())
	for {
		select {
		case <-quit:
			progress.note("Cancelling...")
			if err := rt.downloadMgr.Cancel(); err != nil && !errors.Is(err, domain.ErrNoActiveDownload) {
				return err
			}
		case event, ok := <-events:
			if !ok {
				return errors.New("event stream closed before the download finished")
			}
			if event.DownloadID != download.ID {
				continue
			}
			progress.print(event)
			if event.Kind.IsTerminal() {
				return resultError(event.Result)
			}
		}
	}
}

// resultError turns an unsuccessful terminal result into the command's error
func resultError(result *domain.DownloadResult) error {
	if result == nil || result.Success {
		return nil
	}
	code := 1
	if result.ErrorKind == domain.ErrorCancelledByUser {
		code = 130
	}
	return &exitError{code: code, err: errors.New(result.Summary())}
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
