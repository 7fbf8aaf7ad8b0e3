package build

import "errors"

// Sentinel errors classifying why a target did not succeed. They are wrapped
// with context at the call site.
var (
	ErrPluginApply = errors.New("outputkeeper: plugin apply error")
	ErrCommand     = errors.New("outputkeeper: build command error")
	ErrHook        = errors.New("outputkeeper: hook error")
	ErrPromote     = errors.New("outputkeeper: output promotion error")
)
