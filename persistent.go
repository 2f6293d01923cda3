package ipfix

import (
	"context"
	"os"
	"sync"
)

// PersistentCache wraps an in-memory TemplateCache with load-at-start,
// dump-at-close persistence to a YAML file, so a collector's observed
// templates survive a restart instead of waiting to be re-announced by
// every exporter.
type PersistentCache struct {
	path  string
	name  string
	inner TemplateCache

	mu sync.Mutex
}

// NewPersistentCache returns a PersistentCache backed by an ephemeral
// in-memory cache, reading path at Start and writing it back at Close. The
// file need not exist yet; a missing file is treated as an empty snapshot.
func NewPersistentCache(name, path string) *PersistentCache {
	return &PersistentCache{path: path, name: name, inner: NewEphemeralCache()}
}

func (c *PersistentCache) Get(ctx context.Context, key TemplateKey) (Template, bool, error) {
	return c.inner.Get(ctx, key)
}

func (c *PersistentCache) All(ctx context.Context) (map[TemplateKey]Template, error) {
	return c.inner.All(ctx)
}

func (c *PersistentCache) Delete(ctx context.Context, key TemplateKey) error {
	return c.inner.Delete(ctx, key)
}

func (c *PersistentCache) UpdateWith(ctx context.Context, tmpl Template) (UpdateOutcome, error) {
	return c.inner.UpdateWith(ctx, tmpl)
}

// Start loads any previously dumped templates from disk into the cache. A
// missing file is not an error: it means this is the first run.
func (c *PersistentCache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	exp, err := readTemplateYAML(f)
	if err != nil {
		return err
	}
	for key, tmpl := range fromExport(exp) {
		if err := c.loadInto(ctx, key, tmpl); err != nil {
			return err
		}
	}
	return nil
}

// loadInto restores a template exactly as cached, bypassing UpdateWith's
// state machine (a restored template is not a new wire observation and
// should not be logged or counted as one).
func (c *PersistentCache) loadInto(_ context.Context, key TemplateKey, tmpl Template) error {
	ec, ok := c.inner.(*ephemeralCache)
	if !ok {
		// fall back to UpdateWith for non-ephemeral inner caches; this
		// still produces a correct cache, just through UpdateWith's state
		// machine (an Addition outcome) for what is actually a restore.
		_, err := c.inner.UpdateWith(context.Background(), tmpl)
		return err
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.templates[key] = tmpl
	return nil
}

// Close dumps the current cache contents to disk, overwriting path.
func (c *PersistentCache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	templates, err := c.inner.All(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return writeTemplateYAML(f, toExport(c.name, templates))
}
