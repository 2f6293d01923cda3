// Package redis backs ipfix.TemplateCache with Redis, for collectors
// that want template state to survive a restart or be shared across
// collector replicas without standing up etcd.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowlens/ipfixcore"
	"github.com/redis/go-redis/v9"
)

// Cache is an ipfix.TemplateCache backed by a Redis hash: one hash per
// cache Name, one field per TemplateKey, JSON-encoded Template values.
// UpdateWith's Addition/Redefinition/RedefinitionDifferent/Withdrawal/
// WithdrawalUnknown classification is computed client-side against the
// previously stored value (read-modify-write), same as the in-memory
// ephemeral cache; Redis here is only a storage medium, not a second
// source of the state machine's logic.
type Cache struct {
	client *redis.Client
	key    string
}

var _ ipfix.TemplateCache = (*Cache)(nil)

// New returns a Cache storing its templates in the Redis hash
// "ipfix:templates:<name>".
func New(client *redis.Client, name string) *Cache {
	return &Cache{client: client, key: "ipfix:templates:" + name}
}

func (c *Cache) field(key ipfix.TemplateKey) string { return key.String() }

func (c *Cache) Get(ctx context.Context, key ipfix.TemplateKey) (ipfix.Template, bool, error) {
	raw, err := c.client.HGet(ctx, c.key, c.field(key)).Result()
	if errors.Is(err, redis.Nil) {
		return ipfix.Template{}, false, nil
	}
	if err != nil {
		return ipfix.Template{}, false, err
	}
	var tmpl ipfix.Template
	if err := json.Unmarshal([]byte(raw), &tmpl); err != nil {
		return ipfix.Template{}, false, fmt.Errorf("decoding cached template %s: %w", key, err)
	}
	return tmpl, true, nil
}

func (c *Cache) All(ctx context.Context) (map[ipfix.TemplateKey]ipfix.Template, error) {
	raw, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[ipfix.TemplateKey]ipfix.Template, len(raw))
	for _, v := range raw {
		var tmpl ipfix.Template
		if err := json.Unmarshal([]byte(v), &tmpl); err != nil {
			return nil, err
		}
		out[tmpl.Key] = tmpl
	}
	return out, nil
}

func (c *Cache) Delete(ctx context.Context, key ipfix.TemplateKey) error {
	return c.client.HDel(ctx, c.key, c.field(key)).Err()
}

func (c *Cache) UpdateWith(ctx context.Context, tmpl ipfix.Template) (ipfix.UpdateOutcome, error) {
	if tmpl.Key.TemplateId < 256 {
		panic(fmt.Sprintf("redis: template id %d is reserved and must never reach UpdateWith", tmpl.Key.TemplateId))
	}

	existing, ok, err := c.Get(ctx, tmpl.Key)
	if err != nil {
		return 0, err
	}

	if len(tmpl.Fields) == 0 {
		if !ok {
			return ipfix.WithdrawalUnknown, nil
		}
		return ipfix.Withdrawal, c.Delete(ctx, tmpl.Key)
	}

	outcome := ipfix.Addition
	if ok {
		if !existing.EqualDefinition(tmpl) {
			// a conflicting redefinition evicts the stored template too
			return ipfix.RedefinitionDifferent, c.Delete(ctx, tmpl.Key)
		}
		outcome = ipfix.Redefinition
	}

	body, err := json.Marshal(tmpl)
	if err != nil {
		return outcome, err
	}
	if err := c.client.HSet(ctx, c.key, c.field(tmpl.Key), body).Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}
