// Package notify provides the in-memory per-user change broadcast that
// long polls ride on. A publisher records the latest clipboard version
// for a user and wakes every waiter registered for that user; waiters
// carry their own cancellation and deadline.
//
// The notifier is process-local. After a restart every waiter is gone
// and clients re-learn state by polling with their last known version
// against the freshly re-read store.
package notify

import (
	"context"
	"sync"
	"time"
)

// Result describes how a WaitForChange call ended.
type Result int

const (
	// Advanced means the version moved past the caller's known version.
	Advanced Result = iota

	// Timeout means the deadline elapsed without an advance.
	Timeout

	// Cancelled means the caller's context fired (client went away).
	Cancelled
)

// String returns the result name, used in log lines and metrics labels.
func (r Result) String() string {
	switch r {
	case Advanced:
		return "advanced"
	case Timeout:
		return "timeout"
	default:
		return "cancelled"
	}
}

// userState holds the latest published version for one user and the
// level-trigger channel current waiters sleep on. Publish closes the
// channel and installs a fresh one, waking every sleeper at once; a
// waiter that returns needs no deregistration, so waiter removal is
// O(1) regardless of how many polls are in flight.
type userState struct {
	version int64
	changed chan struct{}
}

// Notifier is an edge-triggered "the version for user U has advanced"
// signal shared by all poll handlers. Safe for concurrent use.
type Notifier struct {
	mu    sync.Mutex
	users map[int64]*userState
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{
		users: make(map[int64]*userState),
	}
}

// state returns the per-user state, creating it lazily.
// Callers must hold n.mu.
func (n *Notifier) state(userID int64) *userState {
	s, ok := n.users[userID]
	if !ok {
		s = &userState{changed: make(chan struct{})}
		n.users[userID] = s
	}
	return s
}

// Publish records version as the latest for userID and wakes every
// waiter currently sleeping on that user. Never blocks: waking is a
// channel close, so waiters cannot delay the publisher.
func (n *Notifier) Publish(userID, version int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := n.state(userID)
	if version > s.version {
		s.version = version
	}
	close(s.changed)
	s.changed = make(chan struct{})
}

// Latest returns the newest version the notifier has seen for userID,
// 0 if nothing was published since startup.
func (n *Notifier) Latest(userID int64) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state(userID).version
}

// WaitForChange blocks until the version for userID advances past
// known, the timeout elapses, or ctx fires. It returns the latest
// version the notifier holds together with the outcome; on Timeout the
// returned version may equal known.
//
// The version check and the grab of the sleep channel happen under the
// same lock Publish takes to wake waiters, so a publish landing between
// "check" and "sleep" is never lost: it will already have replaced the
// channel we are about to select on only after closing it.
func (n *Notifier) WaitForChange(ctx context.Context, userID, known int64, timeout time.Duration) (int64, Result) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		n.mu.Lock()
		s := n.state(userID)
		if s.version > known {
			latest := s.version
			n.mu.Unlock()
			return latest, Advanced
		}
		changed := s.changed
		n.mu.Unlock()

		select {
		case <-changed:
			// Re-check under the lock; a publish may carry a version
			// that still doesn't pass known (stale or duplicate).
		case <-timer.C:
			return n.Latest(userID), Timeout
		case <-ctx.Done():
			return n.Latest(userID), Cancelled
		}
	}
}
