// internal/notify/notify.go
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Notifier receives user-facing notifications. Stores emit one for every
// successful mutation and every locally rejected one; they never log.
type Notifier interface {
	Success(title, detail string)
	Info(title, detail string)
	Error(title, detail string)
}

// Writer prints notifications to a terminal stream.
type Writer struct {
	Out io.Writer
}

func (w *Writer) Success(title, detail string) { w.print("ok", title, detail) }
func (w *Writer) Info(title, detail string)    { w.print("info", title, detail) }
func (w *Writer) Error(title, detail string)   { w.print("error", title, detail) }

func (w *Writer) print(level, title, detail string) {
	if detail == "" {
		fmt.Fprintf(w.Out, "[%s] %s\n", level, title)
		return
	}
	fmt.Fprintf(w.Out, "[%s] %s: %s\n", level, title, detail)
}

// Discard drops all notifications.
type Discard struct{}

func (Discard) Success(string, string) {}
func (Discard) Info(string, string)    {}
func (Discard) Error(string, string)   {}

// Notification is one recorded message.
type Notification struct {
	Level  string
	Title  string
	Detail string
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []Notification
}

func (r *Recorder) Success(title, detail string) { r.record("success", title, detail) }
func (r *Recorder) Info(title, detail string)    { r.record("info", title, detail) }
func (r *Recorder) Error(title, detail string)   { r.record("error", title, detail) }

func (r *Recorder) record(level, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Notification{Level: level, Title: title, Detail: detail})
}

// All returns a copy of the recorded notifications in order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.msgs...)
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Notification{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}
