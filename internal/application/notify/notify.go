// Package notify surfaces transient success and error messages.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the kind of notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 3 * time.Second

// Presenter shows feedback to the user. Calls never block on the user and
// there is no queueing: concurrent notifications may overlap.
type Presenter interface {
	Success(message string)
	Error(message string)
}

// Notification is one shown message.
type Notification struct {
	Level   Level
	Message string
	Shown   time.Time
	TTL     time.Duration
}

// Expired reports whether n has auto-dismissed at now.
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.Shown.Add(n.TTL))
}

// Sink receives every notification as it is shown.
type Sink interface {
	Show(n Notification)
}

// Center records notifications, fans them out to sinks and dismisses them
// once their TTL passes.
type Center struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	shown []Notification
	sinks []Sink
}

// Option customises a Center.
type Option func(*Center)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// WithSink adds a sink.
func WithSink(s Sink) Option {
	return func(c *Center) { c.sinks = append(c.sinks, s) }
}

// NewCenter creates a notification center.
func NewCenter(opts ...Option) *Center {
	c := &Center{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Center) Success(message string) { c.show(LevelSuccess, message) }

func (c *Center) Error(message string) { c.show(LevelError, message) }

func (c *Center) show(level Level, message string) {
	n := Notification{Level: level, Message: message, Shown: c.now(), TTL: c.ttl}

	c.mu.Lock()
	c.shown = append(c.pruneLocked(n.Shown), n)
	sinks := c.sinks
	c.mu.Unlock()

	for _, s := range sinks {
		s.Show(n)
	}
}

// Active returns the notifications still visible at now, oldest first.
func (c *Center) Active(now time.Time) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = c.pruneLocked(now)
	out := make([]Notification, len(c.shown))
	copy(out, c.shown)
	return out
}

func (c *Center) pruneLocked(now time.Time) []Notification {
	kept := c.shown[:0]
	for _, n := range c.shown {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	return kept
}

// WriterSink prints notifications, one per line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink printing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Show(n Notification) {
	mark := "✓"
	if n.Level == LevelError {
		mark = "✗"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s\n", mark, n.Message)
}

// LogSink mirrors notifications into the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging through l.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Show(n Notification) {
	if n.Level == LevelError {
		s.logger.Warn("notification", zap.String("level", string(n.Level)), zap.String("message", n.Message))
		return
	}
	s.logger.Info("notification", zap.String("level", string(n.Level)), zap.String("message", n.Message))
}

// Recorder keeps every notification ever shown. It is meant for tests.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Success(message string) {
	r.Show(Notification{Level: LevelSuccess, Message: message})
}

func (r *Recorder) Error(message string) { r.Show(Notification{Level: LevelError, Message: message}) }

func (r *Recorder) Show(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// Messages returns the recorded messages of level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.all {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
