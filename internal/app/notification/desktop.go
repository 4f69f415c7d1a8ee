package notification

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrDesktopUnavailable is returned when no notification daemon can be reached.
var ErrDesktopUnavailable = errors.New("desktop notifications unavailable")

// Urgency represents notification priority levels as defined by freedesktop notifications.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// desktopMessage is one desktop notification.
type desktopMessage struct {
	Summary    string
	Body       string
	Urgency    Urgency
	ReplacesID uint32 // 0 = new notification
	TimeoutMs  int32  // -1 = server default
}

// desktopSender delivers a notification and returns its id.
type desktopSender interface {
	send(m desktopMessage) (uint32, error)
}

// DesktopNotifier shows notices as desktop notifications. "Now playing"
// notifications replace each other instead of stacking.
type DesktopNotifier struct {
	mu        sync.Mutex
	sender    desktopSender
	appName   string
	playingID uint32
}

func newDesktopNotifier(sender desktopSender, appName string) *DesktopNotifier {
	return &DesktopNotifier{sender: sender, appName: appName}
}

// Info shows an informational notice.
func (n *DesktopNotifier) Info(msg string) {
	n.show(desktopMessage{Summary: n.appName, Body: msg, Urgency: UrgencyLow, TimeoutMs: -1})
}

// Warn shows a warning notice.
func (n *DesktopNotifier) Warn(msg string) {
	n.show(desktopMessage{Summary: n.appName, Body: msg, Urgency: UrgencyNormal, TimeoutMs: -1})
}

// Error shows an error notice.
func (n *DesktopNotifier) Error(msg string) {
	n.show(desktopMessage{Summary: n.appName, Body: msg, Urgency: UrgencyCritical, TimeoutMs: -1})
}

// NowPlaying shows the playing track, replacing the previous one.
func (n *DesktopNotifier) NowPlaying(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id, err := n.sender.send(desktopMessage{
		Summary:    title,
		Body:       body,
		Urgency:    UrgencyLow,
		ReplacesID: n.playingID,
		TimeoutMs:  -1,
	})
	if err != nil {
		zlog.Warn().Msgf("notice: desktop notification failed: %v", err)
		return
	}
	n.playingID = id
}

func (n *DesktopNotifier) show(m desktopMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.sender.send(m); err != nil {
		zlog.Warn().Msgf("notice: desktop notification failed: %v", err)
	}
}
