// Package registry is the per-session table of output directories and their
// backup/clean state.
//
// Every cleaner bound to the same canonical output path and the same glob set
// shares one Record, so the files are resolved once and each track runs at
// most once per session. Completion is counted per glob set: when every
// registered cleaner of a set has signalled done, the buffered report lines
// for that set are flushed.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/outputkeeper/internal/glob"
	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/metrics"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
	"git.home.luguber.info/inful/outputkeeper/internal/pathutil"
)

// Sink buffers report lines and writes them out on flush. Lines are keyed by
// output path and glob set, since two glob sets on one path complete
// independently.
type Sink interface {
	Record(key, group string, track Track, o Outcome)
	Flush(group string, keys []string)
}

// DiscardSink drops everything.
type DiscardSink struct{}

func (DiscardSink) Record(string, string, Track, Outcome) {}
func (DiscardSink) Flush(string, []string)               {}

// Counter tracks how many cleaners of a glob set exist and how many are done.
type Counter struct {
	Registered int
	Completed  int
}

type recordID struct {
	key   string
	group string
}

// Registry owns all records of one build session.
type Registry struct {
	mu       sync.Mutex
	resolver glob.Resolver
	sink     Sink
	recorder metrics.Recorder
	records  map[recordID]*Record
	keys     map[string][]string
	counters map[string]*Counter
}

// Option configures a Registry.
type Option func(*Registry)

// WithResolver overrides the glob resolver.
func WithResolver(r glob.Resolver) Option {
	return func(reg *Registry) { reg.resolver = r }
}

// WithSink sets where report lines go.
func WithSink(s Sink) Option {
	return func(reg *Registry) { reg.sink = s }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(m metrics.Recorder) Option {
	return func(reg *Registry) { reg.recorder = m }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		resolver: glob.Doublestar{},
		sink:     DiscardSink{},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reset()
	return r
}

// GroupKey derives the completion group of a glob set. Order matters.
func GroupKey(globs []string) string {
	return strings.Join(globs, "\n")
}

// Register binds a cleaner to (outputPath, globs). The first registration for
// a pair creates the record and starts resolving its files in the background;
// later ones reuse it. Every call increments the glob set's registered count.
func (r *Registry) Register(ctx context.Context, outputPath string, globs []string) *Record {
	key := pathutil.Normalize(outputPath)
	group := GroupKey(globs)
	id := recordID{key: key, group: group}

	r.mu.Lock()
	c, ok := r.counters[group]
	if !ok {
		c = &Counter{}
		r.counters[group] = c
	}
	c.Registered++

	rec, exists := r.records[id]
	if !exists {
		rec = newRecord(key, group, globs)
		r.records[id] = rec
		r.keys[group] = append(r.keys[group], key)
	}
	resolver := r.resolver
	r.mu.Unlock()

	if !exists {
		go r.resolveFiles(context.WithoutCancel(ctx), resolver, rec)
	}
	return rec
}

func (r *Registry) resolveFiles(ctx context.Context, resolver glob.Resolver, rec *Record) {
	start := time.Now()
	files, err := resolver.Resolve(ctx, rec.key, rec.globs)
	r.recorder.ObserveStageDuration(metrics.StageResolve, time.Since(start))
	if err != nil {
		observability.WarnContext(ctx, "File resolution failed",
			logfields.OutputPath(rec.key), logfields.Group(rec.group), logfields.Error(err))
	} else {
		observability.DebugContext(ctx, "Resolved files",
			logfields.OutputPath(rec.key), logfields.Files(len(files)))
	}
	rec.resolve(files, err)
}

// Report buffers a terminal outcome for the report.
func (r *Registry) Report(rec *Record, track Track, o Outcome) {
	r.sink.Record(rec.key, rec.group, track, o)
}

// Recorder returns the session's metrics recorder.
func (r *Registry) Recorder() metrics.Recorder {
	return r.recorder
}

// MarkDone counts one completed cleaner of the glob set. When the completed
// count reaches the registered count the group's report is flushed and true
// is returned. Calls beyond the registered count are ignored.
func (r *Registry) MarkDone(ctx context.Context, group string) bool {
	r.mu.Lock()
	c, ok := r.counters[group]
	if !ok || c.Completed >= c.Registered {
		r.mu.Unlock()
		observability.WarnContext(ctx, "Ignoring done signal without a pending cleaner", logfields.Group(group))
		return false
	}
	c.Completed++
	if c.Completed < c.Registered {
		r.mu.Unlock()
		return false
	}
	keys := append([]string(nil), r.keys[group]...)
	r.mu.Unlock()

	r.sink.Flush(group, keys)
	r.recorder.IncReportFlush()
	observability.DebugContext(ctx, "Flushed report", logfields.Group(group), slog.Int("paths", len(keys)))
	return true
}

// Counter returns a snapshot of the glob set's counter.
func (r *Registry) Counter(group string) Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[group]; ok {
		return *c
	}
	return Counter{}
}

// Records returns every record sorted by output path, then glob set.
func (r *Registry) Records() []*Record {
	r.mu.Lock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].key != out[j].key {
			return out[i].key < out[j].key
		}
		return out[i].group < out[j].group
	})
	return out
}

// Lookup returns the record for (outputPath, globs) if one was registered.
func (r *Registry) Lookup(outputPath string, globs []string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID{key: pathutil.Normalize(outputPath), group: GroupKey(globs)}]
	return rec, ok
}

// Reset discards all records and counters.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[recordID]*Record)
	r.keys = make(map[string][]string)
	r.counters = make(map[string]*Counter)
}
