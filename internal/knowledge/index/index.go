// Package index provides an in-memory similarity index with an explicit
// build lifecycle. A whole index is built off to the side and swapped in
// atomically, so queries never see a half-built index.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the build lifecycle of an Index.
type State int32

const (
	StateUninitialized State = iota
	StateBuilding
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotInitialized is returned by Query when the index has never been built
// and has no loader to build itself from, or when its lazy build is still
// running past the caller's deadline.
var ErrNotInitialized = errors.New("index not initialized")

// DefaultBuildTimeout bounds a lazy build started by Query.
const DefaultBuildTimeout = 5 * time.Minute

// Document is a unit of corpus text with optional metadata that every chunk
// cut from it inherits.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a retrievable piece of a document.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64
}

// Loader produces the corpus for a lazy build.
type Loader func(ctx context.Context) ([]Document, error)

type entry struct {
	chunk  Chunk
	vector []float32
}

type snapshot struct {
	entries []entry
}

// Index is safe for concurrent use.
type Index struct {
	name     string
	embedder Embedder
	splitter Splitter
	loader   Loader

	buildTimeout time.Duration
	lazyMu       sync.Mutex
	lazyDone     chan struct{}

	// buildSem serializes builds and lets waiters give up on ctx.
	buildSem chan struct{}
	state    atomic.Int32
	current  atomic.Pointer[snapshot]
	lastErr  atomic.Pointer[error]
}

// Option configures an Index.
type Option func(*Index)

// WithLoader makes Query build the index lazily from loader on first use and
// after a failed build.
func WithLoader(loader Loader) Option {
	return func(ix *Index) { ix.loader = loader }
}

// WithBuildTimeout overrides DefaultBuildTimeout.
func WithBuildTimeout(d time.Duration) Option {
	return func(ix *Index) {
		if d > 0 {
			ix.buildTimeout = d
		}
	}
}

// New creates an uninitialized index.
func New(name string, embedder Embedder, splitter Splitter, opts ...Option) *Index {
	if embedder == nil {
		embedder = NewHashEmbedder()
	}
	ix := &Index{
		name:     name,
		embedder: embedder,
		splitter: splitter,
		buildSem: make(chan struct{}, 1),

		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Name returns the index name used in logs.
func (ix *Index) Name() string { return ix.name }

// State returns the current lifecycle state.
func (ix *Index) State() State { return State(ix.state.Load()) }

// StateName returns the lifecycle state as text.
func (ix *Index) StateName() string { return ix.State().String() }

// LastError returns the error of the most recent failed build, if any.
func (ix *Index) LastError() error {
	if p := ix.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Size returns the number of chunks in the live index.
func (ix *Index) Size() int {
	if snap := ix.current.Load(); snap != nil {
		return len(snap.entries)
	}
	return 0
}

// Query returns the k chunks most similar to text, best first. An index with
// a loader builds itself when it is uninitialized or failed. The build runs
// detached from ctx: when ctx ends first Query returns ErrNotInitialized and
// the build carries on for later queries.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Chunk, error) {
	if ix.State() != StateReady {
		if err := ix.ensureBuilt(ctx); err != nil {
			return nil, err
		}
	}

	snap := ix.current.Load()
	if snap == nil || len(snap.entries) == 0 || k <= 0 {
		return nil, nil
	}

	qvec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: embed query: %w", ix.name, err)
	}

	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, 0, len(snap.entries))
	for i, e := range snap.entries {
		results = append(results, scored{idx: i, score: cosineSimilarity(qvec, e.vector)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]Chunk, len(results))
	for i, r := range results {
		c := snap.entries[r.idx].chunk
		c.Score = r.score
		out[i] = c
	}
	return out, nil
}

func (ix *Index) ensureBuilt(ctx context.Context) error {
	if ix.loader == nil {
		return ErrNotInitialized
	}
	done := ix.startLazyBuild(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("%s: build still running: %w", ix.name, ErrNotInitialized)
	}
	if ix.State() == StateReady {
		return nil
	}
	if err := ix.LastError(); err != nil {
		return err
	}
	return ErrNotInitialized
}

// startLazyBuild starts a build unless one is already running and returns a
// channel closed when that build ends.
func (ix *Index) startLazyBuild(ctx context.Context) <-chan struct{} {
	ix.lazyMu.Lock()
	defer ix.lazyMu.Unlock()
	if ix.lazyDone != nil {
		return ix.lazyDone
	}
	done := make(chan struct{})
	ix.lazyDone = done

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ix.buildTimeout)
	go func() {
		defer func() {
			cancel()
			ix.lazyMu.Lock()
			ix.lazyDone = nil
			ix.lazyMu.Unlock()
			close(done)
		}()
		ix.lazyBuild(bctx)
	}()
	return done
}

func (ix *Index) lazyBuild(ctx context.Context) {
	if err := ix.acquire(ctx); err != nil {
		if ix.State() != StateReady {
			ix.fail(err)
		}
		return
	}
	defer ix.release()

	// A Rebuild may have finished while we waited.
	if ix.State() == StateReady {
		return
	}

	ix.state.Store(int32(StateBuilding))
	docs, err := ix.loader(ctx)
	if err != nil {
		ix.fail(fmt.Errorf("%s: load corpus: %w", ix.name, err))
		return
	}
	snap, err := ix.build(ctx, docs)
	if err != nil {
		ix.fail(err)
		return
	}
	ix.swap(snap)
}

// Rebuild replaces the whole index with one built from docs. While the new
// index is built the previous one keeps serving; if the build fails the
// previous one stays live and the error is returned.
func (ix *Index) Rebuild(ctx context.Context, docs []Document) (int, error) {
	if err := ix.acquire(ctx); err != nil {
		return 0, err
	}
	defer ix.release()

	hadReady := ix.State() == StateReady
	if !hadReady {
		ix.state.Store(int32(StateBuilding))
	}
	snap, err := ix.build(ctx, docs)
	if err != nil {
		if hadReady {
			return 0, err
		}
		return 0, ix.fail(err)
	}
	ix.swap(snap)
	return len(snap.entries), nil
}

// Clear swaps in an empty, ready index.
func (ix *Index) Clear(ctx context.Context) error {
	if err := ix.acquire(ctx); err != nil {
		return err
	}
	defer ix.release()
	ix.swap(&snapshot{})
	return nil
}

func (ix *Index) build(ctx context.Context, docs []Document) (*snapshot, error) {
	snap := &snapshot{}
	for _, doc := range docs {
		for _, text := range ix.splitter.Split(doc.Text) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: build canceled: %w", ix.name, err)
			}
			vec, err := ix.embedder.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%s: embed chunk: %w", ix.name, err)
			}
			if len(snap.entries) > 0 && len(vec) != len(snap.entries[0].vector) {
				return nil, fmt.Errorf("%s: embedding dimension changed from %d to %d", ix.name, len(snap.entries[0].vector), len(vec))
			}
			snap.entries = append(snap.entries, entry{
				chunk: Chunk{
					ID:       uuid.NewString(),
					Text:     text,
					Metadata: cloneMetadata(doc.Metadata),
				},
				vector: vec,
			})
		}
	}
	return snap, nil
}

func (ix *Index) swap(snap *snapshot) {
	ix.current.Store(snap)
	ix.lastErr.Store(nil)
	ix.state.Store(int32(StateReady))
}

func (ix *Index) fail(err error) error {
	ix.lastErr.Store(&err)
	ix.state.Store(int32(StateFailed))
	return err
}

func (ix *Index) acquire(ctx context.Context) error {
	select {
	case ix.buildSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: waiting for build: %w", ix.name, ctx.Err())
	}
}

func (ix *Index) release() { <-ix.buildSem }

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
