// Package branch tracks the output branches of a camera source and the
// stream slot each one occupies in the device configuration.
package branch

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/camerasrc/internal/device"
	"github.com/smazurov/camerasrc/internal/logging"
)

// MainID names the main branch. It always holds slot 0.
const MainID = "src"

var (
	ErrDuplicate        = errors.New("branch already exists")
	ErrNotFound         = errors.New("branch not found")
	ErrMainBranch       = errors.New("main branch cannot be removed")
	ErrNoMatchingConfig = errors.New("no matching stream configuration")
)

// Branch is a snapshot of one registered branch.
type Branch struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
	// Config is the device stream configuration the branch resolved to,
	// including the device stride. Zero until Resolved.
	Config     device.StreamConfig `json:"config"`
	Resolved   bool                `json:"resolved"`
	ConfigDone bool                `json:"config_done"`
}

// Registry maps branch ids to stream slots. Slots are handed out in
// increasing order and never reused.
type Registry struct {
	mu       sync.Mutex
	branches map[string]*Branch
	nextSlot int
	logger   *slog.Logger
}

// NewRegistry creates a registry holding only the main branch.
func NewRegistry() *Registry {
	r := &Registry{
		branches: make(map[string]*Branch),
		logger:   logging.GetLogger("branch"),
	}
	r.branches[MainID] = &Branch{ID: MainID, Slot: 0}
	r.nextSlot = 1
	activeBranches.Set(1)
	return r
}

// Add registers id under the next free slot.
func (r *Registry) Add(id string) (Branch, error) {
	if id == "" {
		return Branch{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.branches[id]; ok {
		return Branch{}, fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	b := &Branch{ID: id, Slot: r.nextSlot}
	r.nextSlot++
	r.branches[id] = b
	activeBranches.Set(float64(len(r.branches)))

	r.logger.Info("Branch added", "branch", id, "slot", b.Slot)
	return *b, nil
}

// Remove drops id. The main branch cannot be removed.
func (r *Registry) Remove(id string) error {
	if id == MainID {
		return ErrMainBranch
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.branches[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.branches, id)
	activeBranches.Set(float64(len(r.branches)))

	r.logger.Info("Branch removed", "branch", id, "slot", b.Slot)
	return nil
}

// Get returns a snapshot of id.
func (r *Registry) Get(id string) (Branch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, false
	}
	return *b, true
}

// Resolve matches requested against the device's supported configurations.
// Only an exact match on format, width, height and field is accepted; the
// match, with the device stride, is recorded on the branch.
func (r *Registry) Resolve(id string, requested device.StreamConfig, supported []device.StreamConfig) (device.StreamConfig, error) {
	i := slices.IndexFunc(supported, requested.SameShape)

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.branches[id]
	if !ok {
		return device.StreamConfig{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if i < 0 {
		negotiations.WithLabelValues("no_match").Inc()
		r.logger.Warn("No matching stream configuration",
			"branch", id,
			"format", requested.Format.String(),
			"width", requested.Width,
			"height", requested.Height,
			"field", requested.Field.String())
		return device.StreamConfig{}, fmt.Errorf("%w: %s %s %dx%d field %s",
			ErrNoMatchingConfig, id, requested.Format, requested.Width, requested.Height, requested.Field)
	}

	match := supported[i]
	if requested.MemType != 0 {
		match.MemType = requested.MemType
	}
	b.Config = match
	b.Resolved = true
	negotiations.WithLabelValues("ok").Inc()

	r.logger.Debug("Branch resolved",
		"branch", id,
		"format", match.Format.String(),
		"width", match.Width,
		"height", match.Height,
		"stride", match.Stride)
	return match, nil
}

// MarkConfigDone flags id as ready for device configuration.
func (r *Registry) MarkConfigDone(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b.ConfigDone = true
	return nil
}

// AllConfigDone reports whether every registered branch is ready.
func (r *Registry) AllConfigDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.branches {
		if !b.ConfigDone {
			return false
		}
	}
	return true
}

// ResetConfigDone clears every ready flag.
func (r *Registry) ResetConfigDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.branches {
		b.ConfigDone = false
	}
}

// DoneCount returns how many branches are ready.
func (r *Registry) DoneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.branches {
		if b.ConfigDone {
			n++
		}
	}
	return n
}

// ActiveCount returns the number of registered branches.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.branches)
}

// Snapshot returns every branch in slot order.
func (r *Registry) Snapshot() []Branch {
	r.mu.Lock()
	out := make([]Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, *b)
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Branch) int { return a.Slot - b.Slot })
	return out
}
