package orchestration

import (
	"log/slog"
	"sync"
)

// artifact serializes appends to one question's markdown file. Append
// failures after the header are logged and do not fail the iteration: the
// report is still returned and exported.
type artifact struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func newArtifact(path string, logger *slog.Logger) *artifact {
	return &artifact{path: path, logger: logger.With("artifact", path)}
}

func (a *artifact) do(fn func(path string) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := fn(a.path); err != nil {
		a.logger.Warn("artifact_write_failed", slog.String("error", err.Error()))
	}
}
