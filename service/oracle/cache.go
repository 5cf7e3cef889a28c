package oracle

import (
	"context"
	"fmt"
	"time"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/bluele/gcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"
)

// Cache caches prices of the wrapped oracle for exp
func Cache(oracle core.Oracle, exp time.Duration) core.Oracle {
	return &cacheOracle{
		Oracle: oracle,
		cache:  gcache.New(2048).LRU().Expiration(exp).Build(),
		sf:     &singleflight.Group{},
	}
}

type cacheOracle struct {
	core.Oracle
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheOracle) GetAssetPrice(ctx context.Context, asset common.Address) (*uint256.Int, error) {
	key := s.priceKey(asset)
	if v, err := s.cache.Get(key); err == nil {
		if price, ok := v.(*uint256.Int); ok {
			return number.Copy(price), nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		price, err := s.Oracle.GetAssetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}

		_ = s.cache.Set(key, price)
		return price, nil
	})
	if err != nil {
		return nil, err
	}

	return number.Copy(v.(*uint256.Int)), nil
}

func (s *cacheOracle) priceKey(asset common.Address) string {
	return fmt.Sprintf("price:%s", asset.Hex())
}
