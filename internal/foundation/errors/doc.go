// Package errors provides the classified error primitives used across outputkeeper.
//
// Key features:
//   - ErrorCategory: broad classification (config, filesystem, glob, build, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.FileSystemError("copy failed").
//		WithContext("path", src).
//		WithCause(originalErr).
//		Build()
package errors
