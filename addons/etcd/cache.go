// Package etcd backs ipfix.TemplateCache with etcd, so a fleet of
// collectors sharing one observation domain's exporters can agree on
// the templates those exporters have announced instead of each
// collector learning them independently.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/flowlens/ipfixcore"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
)

// TemplateCache is an ipfix.TemplateCache backed by etcd: every
// UpdateWith is applied to a local in-memory cache first (so reads
// never block on etcd) and then mirrored to etcd under this cache's
// key prefix; a background watch applies templates other collectors
// wrote back into the local cache.
type TemplateCache struct {
	client *clientv3.Client
	local  ipfix.TemplateCache

	mu        sync.Mutex
	revisions map[ipfix.TemplateKey]int64

	name   string
	prefix string
}

var _ ipfix.TemplateCache = (*TemplateCache)(nil)

// New returns a TemplateCache named name, scoped to its own etcd key
// prefix so multiple named caches can share one etcd cluster without
// colliding.
func New(name string, client *clientv3.Client) *TemplateCache {
	prefix := "templates/" + name + "/"
	client.KV = namespace.NewKV(client.KV, prefix)
	client.Watcher = namespace.NewWatcher(client.Watcher, prefix)
	client.Lease = namespace.NewLease(client.Lease, prefix)

	return &TemplateCache{
		client:    client,
		local:     ipfix.NewEphemeralCache(),
		revisions: make(map[ipfix.TemplateKey]int64),
		name:      name,
		prefix:    prefix,
	}
}

// Start loads every template currently in etcd under this cache's
// prefix into the local cache, then launches the background watch that
// keeps the local cache in sync with writes from other collectors. It
// blocks until ctx is cancelled.
func (c *TemplateCache) Start(ctx context.Context) error {
	logger := ipfix.FromContext(ctx)

	if err := c.load(ctx); err != nil {
		return fmt.Errorf("loading templates from etcd: %w", err)
	}
	logger.V(2).Info("initialized template cache from etcd", "name", c.name)

	go c.watch(ctx)

	<-ctx.Done()
	return nil
}

func (c *TemplateCache) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.client.Get(ctx, "", clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return err
	}
	for _, kv := range res.Kvs {
		var tmpl ipfix.Template
		if err := json.Unmarshal(kv.Value, &tmpl); err != nil {
			return fmt.Errorf("key %q: %w", kv.Key, err)
		}
		if _, err := c.local.UpdateWith(ctx, tmpl); err != nil {
			return err
		}
		c.revisions[tmpl.Key] = kv.ModRevision
	}
	return nil
}

// watch applies etcd writes from other collectors to the local cache.
// Revisions already applied via our own UpdateWith (and thus already
// reflected locally before etcd confirms the write) are skipped by
// comparing the event's modification revision against the last
// revision we recorded for that key.
func (c *TemplateCache) watch(ctx context.Context) {
	logger := ipfix.FromContext(ctx)
	rch := c.client.Watch(ctx, "", clientv3.WithPrefix())
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-rch:
			if !ok {
				return
			}
			for _, ev := range resp.Events {
				if err := c.applyEvent(ctx, ev); err != nil {
					logger.Error(err, "failed to apply etcd watch event")
				}
			}
		}
	}
}

func (c *TemplateCache) applyEvent(ctx context.Context, ev *clientv3.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := parseKey(strings.TrimPrefix(string(ev.Kv.Key), c.prefix))
	if err != nil {
		return err
	}
	if prev, ok := c.revisions[key]; ok && prev >= ev.Kv.ModRevision {
		return nil
	}

	if ev.Type == clientv3.EventTypeDelete {
		c.revisions[key] = ev.Kv.ModRevision
		return c.local.Delete(ctx, key)
	}

	var tmpl ipfix.Template
	if err := json.Unmarshal(ev.Kv.Value, &tmpl); err != nil {
		return err
	}
	if _, err := c.local.UpdateWith(ctx, tmpl); err != nil {
		return err
	}
	c.revisions[key] = ev.Kv.ModRevision
	return nil
}

func parseKey(s string) (ipfix.TemplateKey, error) {
	var key ipfix.TemplateKey
	if _, err := fmt.Sscanf(s, "%d/%d", &key.ObservationDomainId, &key.TemplateId); err != nil {
		return ipfix.TemplateKey{}, fmt.Errorf("malformed etcd key %q: %w", s, err)
	}
	return key, nil
}

func (c *TemplateCache) Get(ctx context.Context, key ipfix.TemplateKey) (ipfix.Template, bool, error) {
	return c.local.Get(ctx, key)
}

func (c *TemplateCache) All(ctx context.Context) (map[ipfix.TemplateKey]ipfix.Template, error) {
	return c.local.All(ctx)
}

func (c *TemplateCache) Delete(ctx context.Context, key ipfix.TemplateKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	_, err := c.client.Delete(ctx, key.String())
	return err
}

func (c *TemplateCache) UpdateWith(ctx context.Context, tmpl ipfix.Template) (ipfix.UpdateOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome, err := c.local.UpdateWith(ctx, tmpl)
	if err != nil {
		return outcome, err
	}

	body, err := json.Marshal(tmpl)
	if err != nil {
		return outcome, err
	}
	resp, err := c.client.Put(ctx, tmpl.Key.String(), string(body))
	if err != nil {
		return outcome, err
	}
	c.revisions[tmpl.Key] = resp.Header.Revision
	return outcome, nil
}

func (c *TemplateCache) Close(ctx context.Context) error {
	return c.client.Close()
}
