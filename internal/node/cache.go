package node

import (
	"strconv"
	"sync"

	tinylfu "github.com/dgryski/go-tinylfu"
)

// payloadCache holds recently decompressed file payloads so that
// re-opening the same lazy file twice doesn't re-inflate it. This is
// purely an optimization: correctness never depends on a hit, and
// verify_crc always re-decompresses straight from the archive's byte
// window, bypassing the cache entirely, so a stale or evicted entry
// can never mask a tamper.
type payloadCache struct {
	mu       sync.Mutex
	lfu      *tinylfu.T
	budget   int
	used     int
}

// cacheSampleSize is tinylfu's sketch reset window; a few hundred
// candidate admissions is plenty for an archive's working set.
const cacheSampleSize = 512

func newPayloadCache(budgetBytes int) *payloadCache {
	return &payloadCache{
		lfu:    tinylfu.New(1024, cacheSampleSize),
		budget: budgetBytes,
	}
}

func cacheKey(fileIndex int) string {
	return strconv.Itoa(fileIndex)
}

func (c *payloadCache) get(fileIndex int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lfu.Get(cacheKey(fileIndex))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *payloadCache) put(fileIndex int, payload []byte) {
	if c == nil || len(payload) > c.budget {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lfu.Add(cacheKey(fileIndex), payload)
}
