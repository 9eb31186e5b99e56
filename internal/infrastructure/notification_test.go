package infrastructure

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/flare-go/internal/domain"
	"go.uber.org/zap"
)

type recordedCommand struct {
	name string
	args []string
}

func newTestNotifier(cfg *domain.NotificationConfig, err error) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	n := NewNotificationService(cfg, zap.NewNop())
	n.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return err
	}
	return n, &calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	assert.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifyDownloadFinished(domain.DownloadRequest{URL: "https://example.com/v"}, &domain.DownloadResult{Success: true})

	assert.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, "Download Completed", (*calls)[0].args[0])
}

func TestNotificationService_OSAScriptQuoting(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Sound: true, Method: "osascript"}, nil)

	assert.NoError(t, n.Send(`say "hi"`, `it's \ done`))

	script := (*calls)[0].args[1]
	assert.True(t, strings.HasPrefix(script, `display notification "it's \\ done" with title "say \"hi\""`))
	assert.Contains(t, script, `sound name "default"`)
}

func TestNotificationService_FailureReturned(t *testing.T) {
	n, _ := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, errors.New("no display"))

	assert.Error(t, n.Send("t", "m"))
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, nil)

	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}
