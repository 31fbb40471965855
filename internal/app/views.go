package app

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/execution"
	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

type quoteRequestBody struct {
	FromAsset string `json:"fromAsset"`
	ToAsset   string `json:"toAsset"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

type quoteView struct {
	Source         string   `json:"source"`
	Direction      string   `json:"direction"`
	SourceAsset    string   `json:"sourceAsset"`
	DestAsset      string   `json:"destAsset"`
	SourceAmount   string   `json:"sourceAmount"`
	DestAmount     string   `json:"destAmount"`
	Path           []string `json:"path"`
	PriceImpactPct string   `json:"priceImpactPct"`
	FeeEstimate    string   `json:"feeEstimate"`
}

type quotesResponse struct {
	Status string      `json:"status"`
	Reason string      `json:"reason,omitempty"`
	Quotes []quoteView `json:"quotes"`
}

type planRequestBody struct {
	Quote       quoteView `json:"quote"`
	SlippageBps *int      `json:"slippageBps"`
}

type planView struct {
	ID                  string   `json:"id"`
	Operation           string   `json:"operation"`
	QuoteSource         string   `json:"quoteSource"`
	SourceAsset         string   `json:"sourceAsset"`
	DestAsset           string   `json:"destAsset"`
	SourceAmount        string   `json:"sourceAmount"`
	DestAmount          string   `json:"destAmount"`
	DestMin             string   `json:"destMin"`
	SendMax             *string  `json:"sendMax,omitempty"`
	Path                []string `json:"path"`
	SlippageBps         int      `json:"slippageBps"`
	ExpiresAfterSeconds int      `json:"expiresAfterSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toRequest 解析请求体，任何字段非法都归为 ErrInvalidRequest。
func (b quoteRequestBody) toRequest() (quote.QuoteRequest, error) {
	var (
		req  quote.QuoteRequest
		errs error
		err  error
	)

	if req.SourceAsset, err = quote.ParseAsset(b.FromAsset); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("fromAsset: %w", err))
	}
	if req.DestAsset, err = quote.ParseAsset(b.ToAsset); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("toAsset: %w", err))
	}
	if req.Amount, err = decimal.NewFromString(b.Amount); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("amount: %q 不是合法数字", b.Amount))
	}
	if req.Direction, err = quote.ParseDirection(b.Direction); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("direction: %w", err))
	}

	if errs != nil {
		return quote.QuoteRequest{}, fmt.Errorf("%w: %v", quote.ErrInvalidRequest, errs)
	}
	return req, nil
}

func newQuoteView(q quote.Quote) quoteView {
	return quoteView{
		Source:         string(q.Source),
		Direction:      string(q.Direction),
		SourceAsset:    q.SourceAsset.String(),
		DestAsset:      q.DestAsset.String(),
		SourceAmount:   formatAmount(q.SourceAmount),
		DestAmount:     formatAmount(q.DestAmount),
		Path:           assetStrings(q.Path),
		PriceImpactPct: formatAmount(q.PriceImpactPct),
		FeeEstimate:    formatAmount(q.FeeEstimate),
	}
}

// toQuote 还原调用方回传的报价，格式错误归为 ErrInvalidQuote。
func (v quoteView) toQuote() (quote.Quote, error) {
	var (
		q    quote.Quote
		errs error
		err  error
	)

	q.Source = quote.Source(v.Source)
	switch q.Source {
	case quote.SourcePath, quote.SourceOrderBook, quote.SourceAMM:
	default:
		errs = multierr.Append(errs, fmt.Errorf("source: 未知来源 %q", v.Source))
	}
	if q.Direction, err = quote.ParseDirection(v.Direction); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("direction: %w", err))
	}
	if q.SourceAsset, err = quote.ParseAsset(v.SourceAsset); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sourceAsset: %w", err))
	}
	if q.DestAsset, err = quote.ParseAsset(v.DestAsset); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("destAsset: %w", err))
	}
	if q.SourceAmount, err = decimal.NewFromString(v.SourceAmount); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sourceAmount: %q 不是合法数字", v.SourceAmount))
	}
	if q.DestAmount, err = decimal.NewFromString(v.DestAmount); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("destAmount: %q 不是合法数字", v.DestAmount))
	}
	q.PriceImpactPct = parseOptional(v.PriceImpactPct)
	q.FeeEstimate = parseOptional(v.FeeEstimate)

	q.Path = make([]quote.Asset, 0, len(v.Path))
	for i, raw := range v.Path {
		asset, parseErr := quote.ParseAsset(raw)
		if parseErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("path[%d]: %w", i, parseErr))
			continue
		}
		q.Path = append(q.Path, asset)
	}

	if errs != nil {
		return quote.Quote{}, fmt.Errorf("%w: %v", quote.ErrInvalidQuote, errs)
	}
	return q, nil
}

func newPlanView(plan execution.UnsignedExecutionPlan) planView {
	view := planView{
		ID:                  plan.ID,
		Operation:           string(plan.Operation),
		QuoteSource:         string(plan.QuoteSource),
		SourceAsset:         plan.SourceAsset.String(),
		DestAsset:           plan.DestAsset.String(),
		SourceAmount:        formatAmount(plan.SourceAmount),
		DestAmount:          formatAmount(plan.DestAmount),
		DestMin:             formatAmount(plan.DestMin),
		Path:                assetStrings(plan.Path),
		SlippageBps:         plan.SlippageBps,
		ExpiresAfterSeconds: plan.ExpiresAfterSeconds,
	}
	if plan.SendMax.Valid {
		sendMax := formatAmount(plan.SendMax.Decimal)
		view.SendMax = &sendMax
	}
	return view
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(quote.LedgerPrecision)
}

func parseOptional(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func assetStrings(assets []quote.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, asset := range assets {
		out = append(out, asset.String())
	}
	return out
}
