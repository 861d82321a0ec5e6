package scoring

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
)

type cachedCount struct {
	count, total uint64
}

// depthCache memoises enclosure counts. A nil *depthCache is a disabled
// cache: lookups miss and stores are dropped.
type depthCache struct {
	c *gocache.Cache
}

func newDepthCache(ttl time.Duration) *depthCache {
	if ttl <= 0 {
		return nil
	}
	return &depthCache{c: gocache.New(ttl, 2*ttl)}
}

func (d *depthCache) get(key string) (cachedCount, bool) {
	if d == nil {
		return cachedCount{}, false
	}
	v, ok := d.c.Get(key)
	if !ok {
		return cachedCount{}, false
	}
	return v.(cachedCount), true
}

func (d *depthCache) set(key string, v cachedCount) {
	if d == nil {
		return
	}
	d.c.SetDefault(key, v)
}

func (d *depthCache) len() int {
	if d == nil {
		return 0
	}
	return d.c.ItemCount()
}

// Fingerprint hashes the exact bit patterns of curve, so 0 and -0 or two
// NaN payloads hash differently. Equal curves always hash equally.
func Fingerprint(curve []float64) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, v := range curve {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// cacheKey scopes a fingerprint to one version of one ensemble.
func cacheKey(ensembleID string, version uint64, curve []float64) string {
	return ensembleID + "/" + strconv.FormatUint(version, 10) + "/" +
		strconv.Itoa(len(curve)) + "/" + strconv.FormatUint(Fingerprint(curve), 16)
}
