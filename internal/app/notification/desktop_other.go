//go:build !linux

package notification

// NewDesktopNotifier is only supported on Linux.
func NewDesktopNotifier(appName string) (*DesktopNotifier, error) {
	return nil, ErrDesktopUnavailable
}
