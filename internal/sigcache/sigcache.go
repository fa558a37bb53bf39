// Package sigcache keeps recently used signatures in memory in front of a
// persistent store.
package sigcache

import (
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/signature"
)

// Backing is the persistent signature table. *store.DB satisfies it.
type Backing interface {
	GetSignature(id string) (signature.Signature, bool, error)
	SaveSignature(id string, sig signature.Signature) error
}

// Cache implements engine.SignatureCache. Backing failures are logged and
// treated as misses.
type Cache struct {
	mem     *cache.Cache
	backing Backing
	logger  *zap.Logger
}

// New creates a Cache whose in-memory entries expire after ttl. A nil
// backing keeps signatures in memory only.
func New(backing Backing, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		mem:     cache.New(ttl, ttl*2),
		backing: backing,
		logger:  logger,
	}
}

// Get returns the signature of an asset, consulting memory first.
func (c *Cache) Get(id string) (signature.Signature, bool) {
	if x, found := c.mem.Get(id); found {
		return x.(signature.Signature), true
	}
	if c.backing == nil {
		return signature.Signature{}, false
	}
	sig, ok, err := c.backing.GetSignature(id)
	if err != nil {
		c.logger.Warn("signature cache read", zap.String("asset", id), zap.Error(err))
		return signature.Signature{}, false
	}
	if ok {
		c.mem.Set(id, sig, cache.DefaultExpiration)
	}
	return sig, ok
}

// Put stores a signature in memory and in the backing store.
func (c *Cache) Put(id string, sig signature.Signature) {
	c.mem.Set(id, sig, cache.DefaultExpiration)
	if c.backing == nil {
		return
	}
	if err := c.backing.SaveSignature(id, sig); err != nil {
		c.logger.Warn("signature cache write", zap.String("asset", id), zap.Error(err))
	}
}

// Forget drops an asset from memory, for example after it was deleted.
func (c *Cache) Forget(id string) {
	c.mem.Delete(id)
}

// Len reports how many signatures are held in memory.
func (c *Cache) Len() int {
	return c.mem.ItemCount()
}
