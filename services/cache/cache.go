package cachesvc

import (
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"

	"github.com/trezcool/kodi/core"
)

// remote is the subset of *memcache.Client used by the cache.
type remote interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// Cache is a two level cache: a local LRU in front of an optional memcached.
type Cache struct {
	local  *ccache.Cache[[]byte]
	remote remote
	ttl    time.Duration
	logger core.Logger
}

var _ core.Cache = (*Cache)(nil)

func New(conf *core.Config, logger core.Logger) *Cache {
	var rem remote
	if conf.Cache.MemcachedHost != "" {
		client := memcache.New(conf.Cache.MemcachedHost)
		client.Timeout = 200 * time.Millisecond
		rem = client
		logger.Info(fmt.Sprintf("cache backed by memcached at %s", conf.Cache.MemcachedHost))
	}
	return newCache(conf.Cache.Size, conf.Cache.TTL, rem, logger)
}

func newCache(size int64, ttl time.Duration, rem remote, logger core.Logger) *Cache {
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		local:  ccache.New(ccache.Configure[[]byte]().MaxSize(size)),
		remote: rem,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}
	if c.remote == nil {
		return nil, false
	}

	item, err := c.remote.Get(key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			c.logger.Warn(fmt.Sprintf("cache.Get(%s): %v", key, err), err)
		}
		return nil, false
	}
	c.local.Set(key, item.Value, c.ttl)
	return item.Value, true
}

func (c *Cache) Set(key string, value []byte) {
	c.local.Set(key, value, c.ttl)
	if c.remote == nil {
		return
	}
	item := &memcache.Item{Key: key, Value: value, Expiration: int32(c.ttl.Seconds())}
	if err := c.remote.Set(item); err != nil {
		c.logger.Warn(fmt.Sprintf("cache.Set(%s): %v", key, err), err)
	}
}

func (c *Cache) Delete(key string) {
	c.local.Delete(key)
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		c.logger.Warn(fmt.Sprintf("cache.Delete(%s): %v", key, err), err)
	}
}

// Close stops the local cache's background worker.
func (c *Cache) Close() {
	c.local.Stop()
}
