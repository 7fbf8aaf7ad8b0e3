// Package metrics provides the observability hooks for backup and clean outcomes.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default so call sites never nil-check:
//
//	reg := registry.New(resolver, sink, registry.WithRecorder(metrics.NoopRecorder{}))
//
// When a metrics textfile is configured the CLI swaps in a PrometheusRecorder
// and writes the gathered families with WriteTextfile after the session ends.
// outputkeeper has no network surface, so metrics are never served over HTTP.
package metrics
