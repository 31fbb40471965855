package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/config"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	usdcIssuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
	aquaIssuer = "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"
)

var usdc = quote.Asset{Code: "USDC", Issuer: usdcIssuer}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.LedgerConfig{
		HorizonURL:        server.URL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
		OrderBookDepth:    20,
		PoolLimit:         5,
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			MinDelay:    time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	}, nil)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(config.LedgerConfig{HorizonURL: "horizon"}, nil)
	require.Error(t, err)
}

func TestFindPathsStrictSend(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paths/strict-send", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "native", q.Get("source_asset_type"))
		assert.Equal(t, "1000.0000000", q.Get("source_amount"))
		assert.Equal(t, "USDC:"+usdcIssuer, q.Get("destination_assets"))

		writeJSON(w, http.StatusOK, `{"_embedded":{"records":[
			{"source_asset_type":"native","source_amount":"1000.0000000",
			 "destination_asset_type":"credit_alphanum4","destination_asset_code":"USDC","destination_asset_issuer":"`+usdcIssuer+`",
			 "destination_amount":"75.5000000",
			 "path":[{"asset_type":"credit_alphanum4","asset_code":"AQUA","asset_issuer":"`+aquaIssuer+`"}]},
			{"source_asset_type":"native","source_amount":"1000.0000000",
			 "destination_asset_type":"liquidity_pool_shares","destination_amount":"1.0000000","path":[]}
		]}}`)
	})

	records, err := client.FindPaths(context.Background(), quote.Native(), usdc, decimal.NewFromInt(1000), quote.DirectionSend)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.True(t, record.SourceAsset.Equal(quote.Native()))
	assert.True(t, record.DestAsset.Equal(usdc))
	assert.Equal(t, "75.5", record.DestAmount.String())
	require.Len(t, record.Path, 1)
	assert.Equal(t, "AQUA", record.Path[0].Code)
}

func TestFindPathsStrictReceive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paths/strict-receive", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "native", q.Get("source_assets"))
		assert.Equal(t, "credit_alphanum4", q.Get("destination_asset_type"))
		assert.Equal(t, "USDC", q.Get("destination_asset_code"))
		assert.Equal(t, usdcIssuer, q.Get("destination_asset_issuer"))
		assert.Equal(t, "50.0000000", q.Get("destination_amount"))

		writeJSON(w, http.StatusOK, `{"_embedded":{"records":[]}}`)
	})

	records, err := client.FindPaths(context.Background(), quote.Native(), usdc, decimal.NewFromInt(50), quote.DirectionReceive)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchOrderBookNormalizesBidAmounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order_book", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "native", q.Get("selling_asset_type"))
		assert.Equal(t, "USDC", q.Get("buying_asset_code"))
		assert.Equal(t, "20", q.Get("limit"))

		writeJSON(w, http.StatusOK, `{
			"bids":[{"price":"0.4900000","amount":"49.0000000"}],
			"asks":[{"price":"0.5000000","amount":"100.0000000"},{"price":"0.5200000","amount":"100.0000000"}]
		}`)
	})

	book, err := client.FetchOrderBook(context.Background(), quote.Native(), usdc)
	require.NoError(t, err)
	require.Len(t, book.Asks, 2)
	assert.Equal(t, "0.5", book.Asks[0].Price.String())
	assert.Equal(t, "100", book.Asks[0].Amount.String())
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "100", book.Bids[0].Amount.String())
}

func TestFetchPoolsParsesReserves(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/liquidity_pools", r.URL.Path)
		assert.Equal(t, "native,USDC:"+usdcIssuer, r.URL.Query().Get("reserves"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		writeJSON(w, http.StatusOK, `{"_embedded":{"records":[
			{"id":"pool-1","fee_bp":30,"type":"constant_product","reserves":[
				{"asset":"native","amount":"1000000.0000000"},
				{"asset":"USDC:`+usdcIssuer+`","amount":"500000.0000000"}]},
			{"id":"pool-2","fee_bp":30,"type":"constant_product","reserves":[
				{"asset":"native","amount":"1.0000000"}]}
		]}}`)
	})

	pools, err := client.FetchPools(context.Background(), quote.Native(), usdc)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	pool := pools[0]
	assert.Equal(t, "pool-1", pool.ID)
	assert.Equal(t, 30, pool.FeeBps)
	assert.True(t, pool.AssetA.Equal(quote.Native()))
	assert.True(t, pool.AssetB.Equal(usdc))
	assert.Equal(t, "1000000", pool.ReserveA.String())
	assert.Equal(t, "500000", pool.ReserveB.String())
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"title":"Service Unavailable","status":503}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"bids":[],"asks":[]}`)
	})

	_, err := client.FetchOrderBook(context.Background(), quote.Native(), usdc)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"title":"Bad Request","status":400,"detail":"invalid asset"}`)
	})

	_, err := client.FetchPools(context.Background(), quote.Native(), usdc)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "invalid asset", statusErr.Detail)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{"title":"Rate Limit Exceeded","status":429}`)
	})

	_, err := client.FetchOrderBook(context.Background(), quote.Native(), usdc)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"bids":[{"price":"abc","amount":"1"}],"asks":[]}`)
	})

	_, err := client.FetchOrderBook(context.Background(), quote.Native(), usdc)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCanceledContextStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"bids":[],"asks":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchOrderBook(ctx, quote.Native(), usdc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}
