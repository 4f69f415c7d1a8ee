package notification

import (
	"fmt"
	"io"
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// Level is the severity of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier shows user-facing notices.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Multi forwards every notice to each notifier in order.
type Multi []Notifier

func (m Multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

func (m Multi) Warn(msg string) {
	for _, n := range m {
		n.Warn(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

// ConsoleNotifier prints notices to a writer, one per line.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a notifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Info prints an informational notice.
func (n *ConsoleNotifier) Info(msg string) {
	n.print(LevelInfo, msg)
}

// Warn prints a warning notice.
func (n *ConsoleNotifier) Warn(msg string) {
	n.print(LevelWarn, msg)
}

// Error prints an error notice.
func (n *ConsoleNotifier) Error(msg string) {
	n.print(LevelError, msg)
}

func (n *ConsoleNotifier) print(level Level, msg string) {
	zlog.Debug().Msgf("notice: level=%s message=%s", level, msg)

	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	switch level {
	case LevelInfo:
		_, err = fmt.Fprintln(n.out, msg)
	default:
		_, err = fmt.Fprintf(n.out, "%s: %s\n", level, msg)
	}
	if err != nil {
		zlog.Error().Msgf("notice: failed to write: %v", err)
	}
}

// Notice is a recorded user-facing message.
type Notice struct {
	Level   Level
	Message string
}

// Recorder keeps every notice in memory. Useful for tests and status displays.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Info(msg string)  { r.add(LevelInfo, msg) }
func (r *Recorder) Warn(msg string)  { r.add(LevelWarn, msg) }
func (r *Recorder) Error(msg string) { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many recorded notices have exactly the given message.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Message == msg {
			n++
		}
	}
	return n
}
