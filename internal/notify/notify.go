// Package notify delivers user facing errors and warnings.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notice is a single message shown to the user.
type Notice struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Notifier is a fire-and-forget sink for notices.
type Notifier interface {
	NotifyError(title, message string)
	NotifyWarning(title, message string)
}

// Log writes notices to the global logger.
type Log struct {
	Session string
}

// NotifyError implements Notifier.
func (l Log) NotifyError(title, message string) {
	log.Error().
		Str("session", l.Session).
		Str("title", title).
		Msg(message)
}

// NotifyWarning implements Notifier.
func (l Log) NotifyWarning(title, message string) {
	log.Warn().
		Str("session", l.Session).
		Str("title", title).
		Msg(message)
}

// Queue keeps notices until the client collects them.
type Queue struct {
	mu      sync.Mutex
	notices []Notice
}

// NotifyError implements Notifier.
func (q *Queue) NotifyError(title, message string) {
	q.push(LevelError, title, message)
}

// NotifyWarning implements Notifier.
func (q *Queue) NotifyWarning(title, message string) {
	q.push(LevelWarning, title, message)
}

func (q *Queue) push(level Level, title, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.notices = append(q.notices, Notice{
		Time:    time.Now().UTC(),
		Level:   level,
		Title:   title,
		Message: message,
	})
}

// Drain returns the pending notices and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.notices
	q.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

type tee []Notifier

func (t tee) NotifyError(title, message string) {
	for _, n := range t {
		n.NotifyError(title, message)
	}
}

func (t tee) NotifyWarning(title, message string) {
	for _, n := range t {
		n.NotifyWarning(title, message)
	}
}

// Tee returns a notifier delivering every notice to all of ns.
func Tee(ns ...Notifier) Notifier {
	return tee(ns)
}
