package notification

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent   []desktopMessage
	nextID uint32
	err    error
}

func (s *fakeSender) send(m desktopMessage) (uint32, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.sent = append(s.sent, m)
	s.nextID++
	return s.nextID, nil
}

func TestDesktopNotifier_Levels(t *testing.T) {
	sender := &fakeSender{}
	n := newDesktopNotifier(sender, "mudeplayer")

	n.Info("Playlist added.")
	n.Warn("Already at first playlist track.")
	n.Error("Failed to start playlist playback.")

	require.Len(t, sender.sent, 3)
	assert.Equal(t, desktopMessage{Summary: "mudeplayer", Body: "Playlist added.", Urgency: UrgencyLow, TimeoutMs: -1}, sender.sent[0])
	assert.Equal(t, UrgencyNormal, sender.sent[1].Urgency)
	assert.Equal(t, UrgencyCritical, sender.sent[2].Urgency)
}

func TestDesktopNotifier_NowPlayingReplacesPrevious(t *testing.T) {
	sender := &fakeSender{}
	n := newDesktopNotifier(sender, "mudeplayer")

	n.NowPlaying("First", "Focus (1/2)")
	n.NowPlaying("Second", "Focus (2/2)")

	require.Len(t, sender.sent, 2)
	assert.Equal(t, uint32(0), sender.sent[0].ReplacesID)
	assert.Equal(t, uint32(1), sender.sent[1].ReplacesID)
}

func TestDesktopNotifier_SendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("no daemon")}
	n := newDesktopNotifier(sender, "mudeplayer")

	assert.NotPanics(t, func() {
		n.Info("x")
		n.NowPlaying("t", "b")
	})
	assert.Equal(t, uint32(0), n.playingID)
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, b}

	m.Info("i")
	m.Warn("w")
	m.Error("e")

	expected := []Notice{{LevelInfo, "i"}, {LevelWarn, "w"}, {LevelError, "e"}}
	assert.Equal(t, expected, a.Notices())
	assert.Equal(t, expected, b.Notices())
}
