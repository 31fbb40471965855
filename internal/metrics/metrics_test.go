package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/aggregator"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

func TestReportCountsBranchOutcomes(t *testing.T) {
	c := NewCollector("test")

	c.Report(context.Background(), aggregator.Report{
		Request: quote.QuoteRequest{Direction: quote.DirectionSend},
		Branches: []aggregator.BranchResult{
			{Source: quote.SourcePath, Elapsed: 10 * time.Millisecond},
			{Source: quote.SourceOrderBook, Err: &quote.SourceError{Source: quote.SourceOrderBook, Kind: quote.KindInsufficientLiquidity}},
			{Source: quote.SourceAMM, Err: &quote.SourceError{Source: quote.SourceAMM, Kind: quote.KindUnavailable}},
		},
		Quotes: 1,
	})
	c.Report(context.Background(), aggregator.Report{
		Request: quote.QuoteRequest{Direction: quote.DirectionSend},
		Branches: []aggregator.BranchResult{
			{Source: quote.SourcePath, Err: &quote.SourceError{Source: quote.SourcePath, Kind: quote.KindNoCandidates}},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.branches.WithLabelValues("PATH", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.branches.WithLabelValues("PATH", "no_candidates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.branches.WithLabelValues("ORDERBOOK", "insufficient_liquidity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.branches.WithLabelValues("AMM", "source_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.aggregations.WithLabelValues("SEND", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.aggregations.WithLabelValues("SEND", "no_route")))
}

func TestObservePlan(t *testing.T) {
	c := NewCollector("")

	c.ObservePlan(nil)
	c.ObservePlan(fmt.Errorf("%w: 20000 bps", quote.ErrInvalidSlippage))
	c.ObservePlan(fmt.Errorf("%w: same assets", quote.ErrInvalidQuote))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues("built")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues("rejected_slippage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues("rejected_quote")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("test")

	router := chi.NewRouter()
	router.Use(c.Middleware)
	router.Get("/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/items/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/v1/items/{id}", "GET", "418")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}
