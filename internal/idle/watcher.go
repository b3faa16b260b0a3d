// Package idle logs the user out after a period without activity.
package idle

import (
	"context"
	"sync"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/session"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/metrics"
)

const DefaultTimeout = 30 * time.Minute

// Activity events that reset the idle timer. Anything else is ignored.
const (
	MouseDown  = "mousedown"
	MouseMove  = "mousemove"
	KeyPress   = "keypress"
	KeyDown    = "keydown"
	Scroll     = "scroll"
	TouchStart = "touchstart"
	Click      = "click"
)

var activity = map[string]struct{}{
	MouseDown: {}, MouseMove: {}, KeyPress: {}, KeyDown: {}, Scroll: {}, TouchStart: {}, Click: {},
}

// IsActivity reports whether event resets the timer.
func IsActivity(event string) bool {
	_, ok := activity[event]
	return ok
}

// Authenticator is the part of the auth helper the watcher needs.
type Authenticator interface {
	IsLoggedIn() bool
	Logout(ctx context.Context) error
}

// Timer is the subset of *time.Timer the watcher uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type Option func(*Watcher)

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(w *Watcher) { w.after = fn }
}

// Watcher owns one timer per session.
type Watcher struct {
	auth    Authenticator
	sess    *session.Session
	timeout time.Duration
	after   AfterFunc

	mu          sync.Mutex
	timer       Timer
	gen         uint64
	running     bool
	unsubscribe func()
}

// New creates a watcher. A non-positive timeout uses DefaultTimeout.
func New(auth Authenticator, sess *session.Session, timeout time.Duration, opts ...Option) *Watcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	w := &Watcher{auth: auth, sess: sess, timeout: timeout, after: realAfterFunc}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Watcher) Timeout() time.Duration { return w.timeout }

// Start arms the timer if the user is authenticated and follows session
// changes: a login re-arms it, a logout disarms it. Calling Start twice is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	if w.sess != nil {
		unsub := w.sess.Subscribe(w.onSessionEvent)
		w.mu.Lock()
		w.unsubscribe = unsub
		w.mu.Unlock()
	}
	if w.auth.IsLoggedIn() {
		w.reset()
	}
}

// Notify records user activity. Unknown events and unauthenticated users are ignored.
func (w *Watcher) Notify(event string) {
	if !IsActivity(event) {
		return
	}
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running || !w.auth.IsLoggedIn() {
		return
	}
	w.reset()
}

// Stop clears the timer and stops following the session.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.running = false
	w.disarmLocked()
	unsub := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Armed reports whether a timer is pending.
func (w *Watcher) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}

func (w *Watcher) onSessionEvent(e session.Event) {
	switch e {
	case session.EventLogin:
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			w.reset()
		}
	case session.EventLogout:
		w.mu.Lock()
		w.disarmLocked()
		w.mu.Unlock()
	}
}

func (w *Watcher) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.disarmLocked()
	w.gen++
	gen := w.gen
	w.timer = w.after(w.timeout, func() { w.fire(gen) })
}

func (w *Watcher) disarmLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.timer == nil {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	if !w.auth.IsLoggedIn() {
		return
	}
	logger.Infof("no activity for %s, logging out", w.timeout)
	metrics.IdleLogouts.Inc()
	if err := w.auth.Logout(context.Background()); err != nil {
		logger.Warnf("idle logout: %v", err)
	}
}
