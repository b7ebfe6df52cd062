package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const entryExt = ".json.zst"

// Entry is one cached model response.
type Entry struct {
	Model     string        `json:"model"`
	Text      string        `json:"text"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// ResponseCache stores model responses on disk as zstd-compressed JSON,
// one file per request key. An empty directory disables the cache.
type ResponseCache struct {
	dir string
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a cache rooted at dir.
func New(dir string) (*ResponseCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &ResponseCache{dir: dir, enc: enc, dec: dec}, nil
}

// Key derives the cache key for a request. The key covers every input that
// changes the response: model, system prompt, user prompt and schema.
func Key(model, systemPrompt, prompt string, schema []byte) (string, error) {
	h := sha256.New()
	for _, s := range []string{model, systemPrompt, prompt} {
		if err := writeString(h, s); err != nil {
			return "", err
		}
	}
	if _, err := h.Write(schema); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns a cached entry. Unreadable entries are treated as misses.
func (c *ResponseCache) Get(key string) (*Entry, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	compressed, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	data, err := c.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Put stores an entry under key.
func (c *ResponseCache) Put(key string, entry *Entry) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := os.WriteFile(c.entryPath(key), c.enc.EncodeAll(data, nil), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes the cache directory. It refuses to delete a directory that
// holds anything other than cache entries.
func (c *ResponseCache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *ResponseCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) error {
	// Null delimiter keeps ("ab","c") and ("a","bc") apart.
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
