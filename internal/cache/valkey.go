package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyCache stores JSON entries in Valkey (Redis-compatible) so cached searches
// survive restarts and are shared between processes
type ValkeyCache struct {
	client  valkey.Client
	prefix  string
	timeout time.Duration
}

// NewValkeyCache connects to the Valkey server at addr. Keys are namespaced with prefix.
func NewValkeyCache(addr, prefix string) (*ValkeyCache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return NewValkeyCacheWithClient(client, prefix), nil
}

// NewValkeyCacheWithClient wraps an existing client
func NewValkeyCacheWithClient(client valkey.Client, prefix string) *ValkeyCache {
	return &ValkeyCache{client: client, prefix: prefix, timeout: 2 * time.Second}
}

// Set stores data as JSON with a TTL. The source is not persisted.
func (c *ValkeyCache) Set(key string, data interface{}, ttl time.Duration, source string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data for cache: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := c.client.B().Set().Key(c.prefix + key).Value(string(jsonData)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry into result. Missing keys report false without an error.
func (c *ValkeyCache) Get(key string, result interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	b, err := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("valkey get %s: %w", key, err)
	}

	if err := json.Unmarshal(b, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

// Delete removes a key
func (c *ValkeyCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	return c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build()).Error()
}

// Close releases the client
func (c *ValkeyCache) Close() {
	c.client.Close()
}
