package paramstore

import (
	"context"
	"errors"
	"sync"
)

// Cache memoizes parameter values for the lifetime of the process. Only
// successful lookups are stored, so a transient failure is retried on the
// next call.
type Cache struct {
	getter Getter

	mu     sync.RWMutex
	values map[string]string
}

func NewCache(getter Getter) (*Cache, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	return &Cache{getter: getter, values: make(map[string]string)}, nil
}

func (c *Cache) GetParameter(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	v, ok := c.values[name]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := c.getter.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.values[name] = v
	c.mu.Unlock()
	return v, nil
}

// Warm loads names into the cache up front, in one batch when the underlying
// getter supports it.
func (c *Cache) Warm(ctx context.Context, names ...string) error {
	if batch, ok := c.getter.(BatchGetter); ok {
		values, err := batch.GetParameters(ctx, names...)
		if err != nil {
			return err
		}
		c.mu.Lock()
		for k, v := range values {
			c.values[k] = v
		}
		c.mu.Unlock()
		return nil
	}
	for _, name := range names {
		if _, err := c.GetParameter(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
