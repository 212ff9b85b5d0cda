package tasks

import "sync"

// Control carries the cooperative pause/cancel signals for one running
// task. The UI side flips the signals; the pipeline worker polls them at
// chunk boundaries.
type Control struct {
	mu        sync.Mutex
	open      bool
	gate      chan struct{}
	cancelled bool
}

// NewControl creates a control with an open pause gate and no
// cancellation requested.
func NewControl() *Control {
	gate := make(chan struct{})
	close(gate)
	return &Control{open: true, gate: gate}
}

// Pause closes the pause gate. Idempotent.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		c.open = false
		c.gate = make(chan struct{})
	}
}

// Resume opens the pause gate, waking any blocked worker. Idempotent.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked()
}

// Cancel requests cancellation and opens the pause gate so a paused
// worker wakes up to observe it instead of blocking forever.
func (c *Control) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	c.openLocked()
}

// Cancelled reports whether cancellation has been requested.
func (c *Control) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Paused reports whether the pause gate is currently closed.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.open
}

// Wait blocks until the pause gate is open, re-checking cancellation
// after every wake. It returns false once cancellation is observed.
func (c *Control) Wait() bool {
	for {
		c.mu.Lock()
		cancelled, open, gate := c.cancelled, c.open, c.gate
		c.mu.Unlock()

		if cancelled {
			return false
		}
		if open {
			return true
		}
		<-gate
	}
}

func (c *Control) openLocked() {
	if !c.open {
		c.open = true
		close(c.gate)
	}
}

// Controls is a synchronized registry of per-task controls, keyed by
// task id. A control exists only while its task is active.
type Controls struct {
	mu   sync.Mutex
	byID map[string]*Control
}

// NewControls creates an empty control registry.
func NewControls() *Controls {
	return &Controls{byID: make(map[string]*Control)}
}

// Put registers a control for the given task id, replacing any previous one.
func (r *Controls) Put(id string, control *Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = control
}

// Get returns the control for the task id, or false when none is active.
func (r *Controls) Get(id string) (*Control, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	control, ok := r.byID[id]
	return control, ok
}

// Remove drops the control for the task id. Missing ids are a no-op.
func (r *Controls) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
