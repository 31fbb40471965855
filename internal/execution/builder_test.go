package execution

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

var (
	usdc = quote.Asset{Code: "USDC", Issuer: "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"}
	aqua = quote.Asset{Code: "AQUA", Issuer: "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"}
)

func makeBaseQuote() quote.Quote {
	return quote.Quote{
		Source:         quote.SourcePath,
		Direction:      quote.DirectionSend,
		SourceAsset:    quote.Native(),
		DestAsset:      usdc,
		SourceAmount:   decimal.RequireFromString("1000"),
		DestAmount:     decimal.RequireFromString("498.0034905"),
		Path:           []quote.Asset{aqua},
		PriceImpactPct: decimal.Zero,
		FeeEstimate:    decimal.Zero,
	}
}

func TestBuild_DestMinFloorsSlippage(t *testing.T) {
	builder := NewBuilder(Options{}, nil)

	plan, err := builder.Build(makeBaseQuote(), 50)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	// 498.0034905 * 0.995 = 495.513473047...
	if want := decimal.RequireFromString("495.513473"); !plan.DestMin.Equal(want) {
		t.Errorf("unexpected destMin: got %s want %s", plan.DestMin, want)
	}
	if plan.Operation != OperationStrictSend {
		t.Errorf("expected strict send, got %s", plan.Operation)
	}
	if plan.SendMax.Valid {
		t.Errorf("strict send plan must not carry sendMax")
	}
	if plan.ExpiresAfterSeconds != 180 {
		t.Errorf("expected default expiry 180, got %d", plan.ExpiresAfterSeconds)
	}
	if plan.Direct() || len(plan.Path) != 1 || !plan.Path[0].Equal(aqua) {
		t.Errorf("expected plan to route through AQUA, got %v", plan.Path)
	}
	if plan.ID == "" {
		t.Errorf("expected plan id")
	}
}

func TestBuild_DestMinNeverExceedsDestAmount(t *testing.T) {
	builder := NewBuilder(Options{SlippageCeilingBps: MaxSlippageBps}, nil)
	chosen := makeBaseQuote()

	for bps := 0; bps <= MaxSlippageBps; bps += 7 {
		plan, err := builder.Build(chosen, bps)
		if err != nil {
			t.Fatalf("Build(%d) returned error: %v", bps, err)
		}
		if plan.DestMin.GreaterThan(chosen.DestAmount) {
			t.Fatalf("destMin %s exceeds destAmount at %d bps", plan.DestMin, bps)
		}
		equal := plan.DestMin.Equal(chosen.DestAmount)
		if equal != (bps == 0) {
			t.Fatalf("destMin equality mismatch at %d bps: %s vs %s", bps, plan.DestMin, chosen.DestAmount)
		}
	}

	plan, err := builder.Build(chosen, MaxSlippageBps)
	if err != nil {
		t.Fatalf("Build(10000) returned error: %v", err)
	}
	if !plan.DestMin.IsZero() {
		t.Errorf("expected zero destMin at 100%% slippage, got %s", plan.DestMin)
	}
}

func TestBuild_RejectsSlippageOutsideCeiling(t *testing.T) {
	builder := NewBuilder(Options{}, nil)

	for _, bps := range []int{-1, DefaultSlippageCeiling + 1, MaxSlippageBps, MaxSlippageBps + 1} {
		if _, err := builder.Build(makeBaseQuote(), bps); !errors.Is(err, quote.ErrInvalidSlippage) {
			t.Errorf("expected ErrInvalidSlippage for %d bps, got %v", bps, err)
		}
	}

	if _, err := builder.Build(makeBaseQuote(), DefaultSlippageCeiling); err != nil {
		t.Errorf("ceiling itself must be accepted, got %v", err)
	}
}

func TestBuild_StrictReceiveCarriesSendMax(t *testing.T) {
	builder := NewBuilder(Options{ExpiresAfter: 30 * time.Second}, nil)
	chosen := makeBaseQuote()
	chosen.Direction = quote.DirectionReceive
	chosen.Source = quote.SourceAMM
	chosen.Path = nil
	chosen.SourceAmount = decimal.RequireFromString("1000.0000001")

	plan, err := builder.Build(chosen, 100)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if plan.Operation != OperationStrictReceive {
		t.Errorf("expected strict receive, got %s", plan.Operation)
	}
	// 1000.0000001 * 1.01 = 1010.000000101，向上取整
	if !plan.SendMax.Valid || !plan.SendMax.Decimal.Equal(decimal.RequireFromString("1010.0000002")) {
		t.Errorf("unexpected sendMax: %+v", plan.SendMax)
	}
	if !plan.Direct() {
		t.Errorf("expected direct instruction for empty path")
	}
	if plan.ExpiresAfterSeconds != 30 {
		t.Errorf("expected expiry 30, got %d", plan.ExpiresAfterSeconds)
	}
}

func TestBuild_InvalidQuote(t *testing.T) {
	builder := NewBuilder(Options{}, nil)

	cases := map[string]func(q *quote.Quote){
		"zero dest":   func(q *quote.Quote) { q.DestAmount = decimal.Zero },
		"zero source": func(q *quote.Quote) { q.SourceAmount = decimal.Zero },
		"same assets": func(q *quote.Quote) { q.DestAsset = quote.Native() },
		"long path":   func(q *quote.Quote) { q.Path = []quote.Asset{aqua, aqua, aqua, aqua, aqua, aqua} },
		"precision":   func(q *quote.Quote) { q.DestAmount = decimal.RequireFromString("1.123456789") },
		"bad asset":   func(q *quote.Quote) { q.DestAsset = quote.Asset{Code: "USDC"} },
	}

	for name, mutate := range cases {
		chosen := makeBaseQuote()
		mutate(&chosen)
		if _, err := builder.Build(chosen, 10); !errors.Is(err, quote.ErrInvalidQuote) {
			t.Errorf("%s: expected ErrInvalidQuote, got %v", name, err)
		}
	}
}
