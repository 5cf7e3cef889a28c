package oracle

import (
	"context"
	"fmt"
	"strings"

	"p2plend/core"
	"p2plend/pkg/id"
	"p2plend/pkg/number"
	"p2plend/pkg/resthttp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Remote pulls prices from a price api
type Remote struct {
	endpoint string
}

// NewRemote new remote oracle
func NewRemote(endpoint string) core.Oracle {
	return &Remote{
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// GetAssetPrice implements core.Oracle
func (r *Remote) GetAssetPrice(ctx context.Context, asset common.Address) (*uint256.Int, error) {
	url := fmt.Sprintf("%s/api/prices/%s", r.endpoint, asset.Hex())
	logger.FromContext(ctx).Debugln("pull price:", url)

	var body priceResponse
	req := resthttp.WithRequestID(ctx, id.GenTraceID())
	if _, err := resthttp.Execute(req, "GET", url, nil, &body); err != nil {
		return nil, fmt.Errorf("pull price of %s: %w", asset.Hex(), err)
	}

	if !body.Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotFound, asset.Hex())
	}

	return number.FromDecimal(body.Price, PriceDecimals)
}
