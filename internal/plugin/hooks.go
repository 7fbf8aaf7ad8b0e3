package plugin

import (
	"context"
	"sync"
)

// HookName identifies a lifecycle point of a build.
type HookName string

const (
	// HookRun fires before the build command starts.
	HookRun HookName = "run"
	// HookEmit fires after a successful build, before the target is finished.
	HookEmit HookName = "emit"
	// HookDone fires when the target finished, whatever the outcome.
	HookDone HookName = "done"
)

type tap struct {
	name string
	fn   func(ctx context.Context) error
}

// Hook is an ordered list of taps fired together.
type Hook struct {
	name HookName
	mu   sync.Mutex
	taps []tap
}

// NewHook creates an empty hook.
func NewHook(name HookName) *Hook {
	return &Hook{name: name}
}

// Name returns the hook name.
func (h *Hook) Name() HookName {
	return h.name
}

// Tap registers a synchronous callback.
func (h *Hook) Tap(name string, fn func(ctx context.Context)) {
	h.TapPromise(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// TapPromise registers a callback the host waits for. A returned error is
// reported to the host as a PluginError.
func (h *Hook) TapPromise(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.taps = append(h.taps, tap{name: name, fn: fn})
}

// Taps returns the names of registered taps in firing order.
func (h *Hook) Taps() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.taps))
	for i, t := range h.taps {
		names[i] = t.name
	}
	return names
}

// Call fires every tap in registration order, waiting for each. The first
// error stops the chain.
func (h *Hook) Call(ctx context.Context) error {
	h.mu.Lock()
	taps := append([]tap(nil), h.taps...)
	h.mu.Unlock()

	for _, t := range taps {
		if err := t.fn(ctx); err != nil {
			return NewPluginError(t.name, string(h.name), err)
		}
	}
	return nil
}

// Hooks is the set of lifecycle hooks of one build target.
type Hooks struct {
	Run  *Hook
	Emit *Hook
	Done *Hook
}

// NewHooks creates a fresh hook set.
func NewHooks() *Hooks {
	return &Hooks{
		Run:  NewHook(HookRun),
		Emit: NewHook(HookEmit),
		Done: NewHook(HookDone),
	}
}
