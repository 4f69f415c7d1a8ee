//go:build linux

package notification

import (
	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusSender sends notifications via the session bus.
type dbusSender struct {
	appName string
	obj     dbus.BusObject
}

// NewDesktopNotifier connects to the session bus notification daemon.
func NewDesktopNotifier(appName string) (*DesktopNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to connect to session bus"), ErrDesktopUnavailable)
	}
	sender := &dbusSender{
		appName: appName,
		obj:     conn.Object(dbusNotifyDest, dbusNotifyPath),
	}
	return newDesktopNotifier(sender, appName), nil
}

func (s *dbusSender) send(m desktopMessage) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(m.Urgency)),
	}

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := s.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		s.appName,
		m.ReplacesID,
		"audio-x-generic",
		m.Summary,
		m.Body,
		[]string{},
		hints,
		m.TimeoutMs,
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}
