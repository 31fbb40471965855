package quote

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcIssuer = "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
	aquaIssuer = "GBNZILSTVQZ4R7IKQDGHYGY2QXL5QOFJYQMXPKWRRM5PAV7Y4M67AQUA"
)

func TestParseAsset(t *testing.T) {
	cases := []struct {
		in      string
		want    Asset
		wantErr bool
	}{
		{in: "native", want: Native()},
		{in: "NATIVE", want: Native()},
		{in: "XLM", want: Native()},
		{in: "USDC:" + usdcIssuer, want: Asset{Code: "USDC", Issuer: usdcIssuer}},
		{in: " AQUA:" + aquaIssuer + " ", want: Asset{Code: "AQUA", Issuer: aquaIssuer}},
		{in: "", wantErr: true},
		{in: "USDC", wantErr: true},
		{in: "USDC:GABC", wantErr: true},
		{in: "TOOLONGASSETCODE:" + usdcIssuer, wantErr: true},
		{in: "US-DC:" + usdcIssuer, wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseAsset(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestAssetEqualityIsCaseSensitive(t *testing.T) {
	a := Asset{Code: "USDC", Issuer: usdcIssuer}
	b := Asset{Code: "usdc", Issuer: usdcIssuer}

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(Native()))
	assert.Equal(t, "native", Native().String())
	assert.Equal(t, "USDC:"+usdcIssuer, a.String())
}

func TestQuoteRequestValidate(t *testing.T) {
	usdc := Asset{Code: "USDC", Issuer: usdcIssuer}

	valid := QuoteRequest{
		SourceAsset: Native(),
		DestAsset:   usdc,
		Amount:      decimal.RequireFromString("10.5"),
		Direction:   DirectionSend,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(r *QuoteRequest){
		"same assets":     func(r *QuoteRequest) { r.DestAsset = Native() },
		"zero amount":     func(r *QuoteRequest) { r.Amount = decimal.Zero },
		"negative amount": func(r *QuoteRequest) { r.Amount = decimal.NewFromInt(-1) },
		"too precise":     func(r *QuoteRequest) { r.Amount = decimal.RequireFromString("1.00000001") },
		"bad asset":       func(r *QuoteRequest) { r.SourceAsset = Asset{Code: "USDC"} },
		"bad direction":   func(r *QuoteRequest) { r.Direction = "SIDEWAYS" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionSend, dir)

	dir, err = ParseDirection("receive")
	require.NoError(t, err)
	assert.Equal(t, DirectionReceive, dir)

	_, err = ParseDirection("buy")
	assert.Error(t, err)
}

func TestSourcePriority(t *testing.T) {
	assert.Less(t, SourcePath.Priority(), SourceAMM.Priority())
	assert.Less(t, SourceAMM.Priority(), SourceOrderBook.Priority())
}
