// Package quorum gates the single device configuration call of a session
// until every active branch has negotiated, and runs streaming start and
// stop once no matter how many branches race to trigger them.
package quorum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camerasrc/internal/branch"
	"github.com/smazurov/camerasrc/internal/logging"
)

var (
	// ErrCancelled releases branches waiting on a stopped session.
	ErrCancelled = errors.New("session cancelled")
	// ErrReconfigureUnsupported is returned to a branch that arrives after
	// the device was configured without it.
	ErrReconfigureUnsupported = errors.New("device already configured without this branch")
	// ErrNotConfigured is returned by StartOnce before the device is configured.
	ErrNotConfigured = errors.New("device not configured")
)

// Members is the branch set the quorum counts. branch.Registry implements it.
type Members interface {
	MarkConfigDone(id string) error
	AllConfigDone() bool
	ResetConfigDone()
	Snapshot() []branch.Branch
}

// ConfigureFunc performs the device configuration for branches, in slot order.
type ConfigureFunc func(branches []branch.Branch) error

// Quorum is the per-session configuration barrier.
type Quorum struct {
	mu         sync.Mutex
	cond       *sync.Cond
	state      State
	members    Members
	configure  ConfigureFunc
	configured map[string]struct{}
	waiters    int

	// gen advances on every failed configure so parked waiters can tell
	// that the attempt they were waiting for is gone.
	gen     uint64
	lastErr error

	runMu   sync.Mutex
	started bool
	stopped bool

	logger *slog.Logger
}

// New creates a quorum in WAITING over members.
func New(members Members, configure ConfigureFunc) *Quorum {
	q := &Quorum{
		state:     StateWaiting,
		members:   members,
		configure: configure,
		logger:    logging.GetLogger("quorum"),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Arrive marks id ready. The caller that completes the quorum configures
// the device; every other caller blocks until that configuration finishes,
// fails, the session is cancelled or ctx ends.
func (q *Quorum) Arrive(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { waitSeconds.Observe(time.Since(start).Seconds()) }()

	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.state {
	case StateCancelled:
		return ErrCancelled
	case StateConfigured:
		return q.checkConfiguredLocked(id)
	}

	if err := q.members.MarkConfigDone(id); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	gen := q.gen
	for {
		switch {
		case q.state == StateCancelled:
			return ErrCancelled
		case q.state == StateConfigured:
			return q.checkConfiguredLocked(id)
		case q.gen != gen:
			return q.lastErr
		case ctx.Err() != nil:
			return ctx.Err()
		case q.state == StateWaiting && q.members.AllConfigDone():
			return q.configureLocked(id)
		}

		q.waiters++
		q.logger.Debug("Waiting for branches", "branch", id)
		q.cond.Wait()
		q.waiters--
	}
}

func (q *Quorum) checkConfiguredLocked(id string) error {
	if _, ok := q.configured[id]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrReconfigureUnsupported, id)
}

// configureLocked runs with q.mu held on entry and exit. The lock is
// released around the device call; CONFIGURING keeps everyone else out.
func (q *Quorum) configureLocked(id string) error {
	q.state = StateConfiguring
	branches := q.members.Snapshot()
	q.logger.Info("All branches negotiated, configuring device", "branch", id, "streams", len(branches))

	q.mu.Unlock()
	err := q.configure(branches)
	q.mu.Lock()

	if q.state == StateCancelled {
		configureCalls.WithLabelValues("cancelled").Inc()
		return ErrCancelled
	}

	if err != nil {
		configureCalls.WithLabelValues("error").Inc()
		q.logger.Error("Device configuration failed", "branch", id, "error", err)
		q.state = StateWaiting
		q.members.ResetConfigDone()
		q.gen++
		q.lastErr = err
		q.cond.Broadcast()
		return err
	}

	configureCalls.WithLabelValues("ok").Inc()
	q.configured = make(map[string]struct{}, len(branches))
	for _, b := range branches {
		q.configured[b.ID] = struct{}{}
	}
	q.state = StateConfigured
	q.cond.Broadcast()
	q.logger.Info("Device configured", "streams", len(branches))
	return nil
}

// Configured reports whether the device is configured and, if so, whether
// id was one of the configured branches.
func (q *Quorum) Configured(id string) (configured, member bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StateConfigured {
		return false, false
	}
	_, member = q.configured[id]
	return true, member
}

// Recheck wakes waiters so they re-evaluate the quorum. Call it after a
// branch is removed.
func (q *Quorum) Recheck() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StateWaiting {
		q.cond.Broadcast()
	}
}

// Cancel moves the quorum to CANCELLED and releases every waiter with
// ErrCancelled.
func (q *Quorum) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StateCancelled {
		return
	}
	q.logger.Debug("Quorum cancelled", "state", string(q.state), "waiters", q.waiters)
	q.state = StateCancelled
	q.cond.Broadcast()
}

// State returns the current state.
func (q *Quorum) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Waiters returns how many branches are parked in Arrive.
func (q *Quorum) Waiters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiters
}

// StartOnce runs fn the first time it is called after configuration. A
// failed fn may be retried by the next caller.
func (q *Quorum) StartOnce(fn func() error) error {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	// Checked under runMu: once Stop has cancelled, fn never runs.
	if st := q.State(); st != StateConfigured {
		if st == StateCancelled {
			return ErrCancelled
		}
		return ErrNotConfigured
	}
	if q.started {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	q.started = true
	return nil
}

// StopOnce runs fn once if streaming was started.
func (q *Quorum) StopOnce(fn func() error) error {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	if !q.started || q.stopped {
		return nil
	}
	q.stopped = true
	return fn()
}

// Started reports whether StartOnce has succeeded.
func (q *Quorum) Started() bool {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	return q.started && !q.stopped
}
