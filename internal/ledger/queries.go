package ledger

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	defaultOrderBookDepth = 50
	defaultPoolLimit      = 20
	constantProductPool   = "constant_product"
)

// FindPaths 调用 strict-send 或 strict-receive 路径搜索。
func (c *Client) FindPaths(ctx context.Context, source, dest quote.Asset, amount decimal.Decimal, direction quote.Direction) ([]quote.PathRecord, error) {
	params := url.Values{}
	endpoint := "/paths/strict-send"
	operation := "paths_strict_send"

	if direction == quote.DirectionReceive {
		endpoint = "/paths/strict-receive"
		operation = "paths_strict_receive"
		params.Set("source_assets", canonical(source))
		setAssetParams(params, "destination_", dest)
		params.Set("destination_amount", amount.StringFixed(quote.LedgerPrecision))
	} else {
		setAssetParams(params, "source_", source)
		params.Set("source_amount", amount.StringFixed(quote.LedgerPrecision))
		params.Set("destination_assets", canonical(dest))
	}

	var resp pathsResponse
	if err := c.getJSON(ctx, operation, endpoint, params, &resp); err != nil {
		return nil, err
	}

	records := make([]quote.PathRecord, 0, len(resp.Embedded.Records))
	for _, raw := range resp.Embedded.Records {
		record, err := convertPathRecord(raw)
		if err != nil {
			c.logger.Debug("跳过无法解析的路径记录", zap.Error(err))
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// FetchOrderBook 拉取以源资产为 base、目标资产为 counter 的订单簿。
func (c *Client) FetchOrderBook(ctx context.Context, source, dest quote.Asset) (quote.BookSnapshot, error) {
	depth := c.cfg.OrderBookDepth
	if depth <= 0 {
		depth = defaultOrderBookDepth
	}

	params := url.Values{}
	setAssetParams(params, "selling_", source)
	setAssetParams(params, "buying_", dest)
	params.Set("limit", strconv.Itoa(depth))

	var resp orderBookResponse
	if err := c.getJSON(ctx, "order_book", "/order_book", params, &resp); err != nil {
		return quote.BookSnapshot{}, err
	}

	return convertOrderBook(resp)
}

// FetchPools 拉取同时持有两种资产的流动性池。
func (c *Client) FetchPools(ctx context.Context, source, dest quote.Asset) ([]quote.PoolSnapshot, error) {
	limit := c.cfg.PoolLimit
	if limit <= 0 {
		limit = defaultPoolLimit
	}

	params := url.Values{}
	params.Set("reserves", canonical(source)+","+canonical(dest))
	params.Set("limit", strconv.Itoa(limit))

	var resp poolsResponse
	if err := c.getJSON(ctx, "liquidity_pools", "/liquidity_pools", params, &resp); err != nil {
		return nil, err
	}

	pools := make([]quote.PoolSnapshot, 0, len(resp.Embedded.Records))
	for _, raw := range resp.Embedded.Records {
		pool, err := convertPool(raw)
		if err != nil {
			c.logger.Debug("跳过无法解析的流动性池", zap.String("pool_id", raw.ID), zap.Error(err))
			continue
		}
		pools = append(pools, pool)
	}

	return pools, nil
}

func setAssetParams(params url.Values, prefix string, asset quote.Asset) {
	params.Set(prefix+"asset_type", assetType(asset))
	if asset.IsNative() {
		return
	}
	params.Set(prefix+"asset_code", asset.Code)
	params.Set(prefix+"asset_issuer", asset.Issuer)
}

func convertPathRecord(raw pathRecord) (quote.PathRecord, error) {
	source, err := toAsset(raw.SourceAssetType, raw.SourceAssetCode, raw.SourceAssetIssuer)
	if err != nil {
		return quote.PathRecord{}, err
	}
	dest, err := toAsset(raw.DestinationAssetType, raw.DestinationAssetCode, raw.DestinationAssetIssuer)
	if err != nil {
		return quote.PathRecord{}, err
	}
	sourceAmount, err := decimal.NewFromString(raw.SourceAmount)
	if err != nil {
		return quote.PathRecord{}, fmt.Errorf("%w: source_amount %q", ErrMalformedResponse, raw.SourceAmount)
	}
	destAmount, err := decimal.NewFromString(raw.DestinationAmount)
	if err != nil {
		return quote.PathRecord{}, fmt.Errorf("%w: destination_amount %q", ErrMalformedResponse, raw.DestinationAmount)
	}

	path := make([]quote.Asset, 0, len(raw.Path))
	for _, hop := range raw.Path {
		asset, err := toAsset(hop.AssetType, hop.AssetCode, hop.AssetIssuer)
		if err != nil {
			return quote.PathRecord{}, err
		}
		path = append(path, asset)
	}

	return quote.PathRecord{
		SourceAsset:  source,
		SourceAmount: sourceAmount,
		DestAsset:    dest,
		DestAmount:   destAmount,
		Path:         path,
	}, nil
}

// convertOrderBook 卖盘数量本就以 base 计；买盘数量以 counter 计，需要换算为 base。
func convertOrderBook(raw orderBookResponse) (quote.BookSnapshot, error) {
	asks := make([]quote.OrderBookLevel, 0, len(raw.Asks))
	for _, level := range raw.Asks {
		price, amount, err := parseLevel(level)
		if err != nil {
			return quote.BookSnapshot{}, err
		}
		asks = append(asks, quote.OrderBookLevel{Price: price, Amount: amount})
	}

	bids := make([]quote.OrderBookLevel, 0, len(raw.Bids))
	for _, level := range raw.Bids {
		price, amount, err := parseLevel(level)
		if err != nil {
			return quote.BookSnapshot{}, err
		}
		if !price.IsPositive() {
			continue
		}
		bids = append(bids, quote.OrderBookLevel{
			Price:  price,
			Amount: amount.DivRound(price, quote.LedgerPrecision),
		})
	}

	return quote.BookSnapshot{Asks: asks, Bids: bids}, nil
}

func parseLevel(level orderBookLevel) (decimal.Decimal, decimal.Decimal, error) {
	price, err := decimal.NewFromString(level.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: price %q", ErrMalformedResponse, level.Price)
	}
	amount, err := decimal.NewFromString(level.Amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: amount %q", ErrMalformedResponse, level.Amount)
	}
	return price, amount, nil
}

func convertPool(raw poolRecord) (quote.PoolSnapshot, error) {
	if raw.Type != "" && raw.Type != constantProductPool {
		return quote.PoolSnapshot{}, fmt.Errorf("不支持的池类型 %q", raw.Type)
	}
	if len(raw.Reserves) != 2 {
		return quote.PoolSnapshot{}, fmt.Errorf("%w: 池 %s 含 %d 个储备", ErrMalformedResponse, raw.ID, len(raw.Reserves))
	}

	assets := make([]quote.Asset, 2)
	amounts := make([]decimal.Decimal, 2)
	for i, reserve := range raw.Reserves {
		asset, err := parseReserveAsset(reserve.Asset)
		if err != nil {
			return quote.PoolSnapshot{}, err
		}
		amount, err := decimal.NewFromString(reserve.Amount)
		if err != nil {
			return quote.PoolSnapshot{}, fmt.Errorf("%w: reserve %q", ErrMalformedResponse, reserve.Amount)
		}
		assets[i] = asset
		amounts[i] = amount
	}

	return quote.PoolSnapshot{
		ID:       raw.ID,
		AssetA:   assets[0],
		AssetB:   assets[1],
		ReserveA: amounts[0],
		ReserveB: amounts[1],
		FeeBps:   raw.FeeBp,
	}, nil
}
