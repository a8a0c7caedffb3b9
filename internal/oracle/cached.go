package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/drockthedoc/transfer-center/internal/model"
)

// CachedOracle memoizes oracle answers for the configured TTL. It exists for
// batch runs where many requests share an origin; the pipeline itself never
// caches across requests.
type CachedOracle struct {
	inner Oracle
	cache *gocache.Cache
}

// NewCachedOracle wraps an oracle with a TTL cache.
func NewCachedOracle(inner Oracle, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedOracle) TravelEstimate(ctx context.Context, origin model.Location, campus model.HospitalCampus, mode model.TransportMode) (*model.TravelEstimate, error) {
	key := cacheKey(fmt.Sprintf("travel|%.6f|%.6f|%s|%s", origin.Latitude, origin.Longitude, campus.CampusID, mode))
	if val, found := c.cache.Get(key); found {
		est := val.(model.TravelEstimate)
		return &est, nil
	}

	est, err := c.inner.TravelEstimate(ctx, origin, campus, mode)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, *est)
	return est, nil
}

func (c *CachedOracle) BedCensus(ctx context.Context, campusID string) (*model.BedCensus, error) {
	key := cacheKey("beds|" + campusID)
	if val, found := c.cache.Get(key); found {
		census := val.(model.BedCensus)
		return &census, nil
	}

	census, err := c.inner.BedCensus(ctx, campusID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, *census)
	return census, nil
}

// cacheKey hashes the lookup parameters into a fixed-width key.
func cacheKey(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
