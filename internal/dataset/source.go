package dataset

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/physbench/physbench/internal/models"
)

// QuestionSource supplies questions through two independent cursors: a
// random draw without replacement and a sequential draw over a stable order.
// Implementations are safe for concurrent use.
type QuestionSource interface {
	DrawRandom() (models.Question, error)
	DrawNext() (models.Question, error)
	ResetRandom()
	ResetSequential()
	Get(id string) (map[string]any, error)
	Len() int
}

// Option configures a source.
type Option func(*options)

type options struct {
	seed      *uint64
	cacheSize int
}

// WithSeed makes random draws reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithCacheSize bounds the number of decoded payloads a FileSetSource keeps.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func buildOptions(opts []Option) options {
	o := options{cacheSize: defaultCacheSize}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// cursors holds the draw state shared by both source variants. The id order
// is fixed at construction.
type cursors struct {
	ids   []string
	known map[string]struct{}
	load  func(id string) (map[string]any, error)

	mu        sync.Mutex
	rng       *rand.Rand
	remaining []string
	next      int
}

func newCursors(ids []string, load func(string) (map[string]any, error), o options) *cursors {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	var src rand.Source
	if o.seed != nil {
		src = rand.NewPCG(*o.seed, *o.seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	c := &cursors{
		ids:   ids,
		known: known,
		load:  load,
		rng:   rand.New(src), // #nosec G404 -- sampling, not security
	}
	c.remaining = append([]string(nil), ids...)
	return c
}

func (c *cursors) DrawRandom() (models.Question, error) {
	c.mu.Lock()
	if len(c.remaining) == 0 {
		c.mu.Unlock()
		return models.Question{}, ErrExhausted
	}
	i := c.rng.IntN(len(c.remaining))
	id := c.remaining[i]
	last := len(c.remaining) - 1
	c.remaining[i] = c.remaining[last]
	c.remaining = c.remaining[:last]
	c.mu.Unlock()

	return c.question(id)
}

func (c *cursors) DrawNext() (models.Question, error) {
	c.mu.Lock()
	if c.next >= len(c.ids) {
		c.mu.Unlock()
		return models.Question{}, ErrExhausted
	}
	id := c.ids[c.next]
	c.next++
	c.mu.Unlock()

	return c.question(id)
}

func (c *cursors) ResetRandom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = append(c.remaining[:0], c.ids...)
}

func (c *cursors) ResetSequential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
}

func (c *cursors) Get(id string) (map[string]any, error) {
	if _, ok := c.known[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.load(id)
}

func (c *cursors) Len() int { return len(c.ids) }

func (c *cursors) question(id string) (models.Question, error) {
	payload, err := c.load(id)
	if err != nil {
		return models.Question{}, fmt.Errorf("loading question %s: %w", id, err)
	}
	return models.Question{ID: id, Payload: payload}, nil
}

// Open builds the source described by a dataset config.
func Open(cfg models.DatasetConfig, path string, opts ...Option) (QuestionSource, error) {
	if cfg.CacheSize > 0 {
		opts = append([]Option{WithCacheSize(cfg.CacheSize)}, opts...)
	}
	switch cfg.Kind {
	case models.SourceFileSet:
		return NewFileSetSource(path, opts...)
	case models.SourceList:
		return NewListSource(path, opts...)
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", cfg.Kind)
	}
}
