package ledger

import (
	"fmt"
	"strings"

	"github.com/Chrissou78/stellar-wallet-sub000/internal/quote"
)

const (
	assetTypeNative    = "native"
	assetTypeCredit4   = "credit_alphanum4"
	assetTypeCredit12  = "credit_alphanum12"
	maxCredit4CodeSize = 4
)

type problemResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type pathsResponse struct {
	Embedded struct {
		Records []pathRecord `json:"records"`
	} `json:"_embedded"`
}

type pathRecord struct {
	SourceAssetType        string      `json:"source_asset_type"`
	SourceAssetCode        string      `json:"source_asset_code"`
	SourceAssetIssuer      string      `json:"source_asset_issuer"`
	SourceAmount           string      `json:"source_amount"`
	DestinationAssetType   string      `json:"destination_asset_type"`
	DestinationAssetCode   string      `json:"destination_asset_code"`
	DestinationAssetIssuer string      `json:"destination_asset_issuer"`
	DestinationAmount      string      `json:"destination_amount"`
	Path                   []pathAsset `json:"path"`
}

type pathAsset struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
}

type orderBookResponse struct {
	Bids []orderBookLevel `json:"bids"`
	Asks []orderBookLevel `json:"asks"`
}

type orderBookLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

type poolsResponse struct {
	Embedded struct {
		Records []poolRecord `json:"records"`
	} `json:"_embedded"`
}

type poolRecord struct {
	ID       string        `json:"id"`
	FeeBp    int           `json:"fee_bp"`
	Type     string        `json:"type"`
	Reserves []poolReserve `json:"reserves"`
}

type poolReserve struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// toAsset 将 Horizon 的 type/code/issuer 三元组转换为资产。
func toAsset(assetType, code, issuer string) (quote.Asset, error) {
	switch assetType {
	case assetTypeNative:
		return quote.Native(), nil
	case assetTypeCredit4, assetTypeCredit12:
		asset := quote.Asset{Code: code, Issuer: issuer}
		if err := asset.Validate(); err != nil {
			return quote.Asset{}, err
		}
		return asset, nil
	default:
		return quote.Asset{}, fmt.Errorf("未知资产类型 %q", assetType)
	}
}

// parseReserveAsset 解析储备中 "native" 或 "CODE:ISSUER" 形式的资产。
func parseReserveAsset(value string) (quote.Asset, error) {
	if value == assetTypeNative {
		return quote.Native(), nil
	}
	code, issuer, ok := strings.Cut(value, ":")
	if !ok {
		return quote.Asset{}, fmt.Errorf("储备资产 %q 格式无效", value)
	}
	asset := quote.Asset{Code: code, Issuer: issuer}
	if err := asset.Validate(); err != nil {
		return quote.Asset{}, err
	}
	return asset, nil
}

func assetType(asset quote.Asset) string {
	switch {
	case asset.IsNative():
		return assetTypeNative
	case len(asset.Code) <= maxCredit4CodeSize:
		return assetTypeCredit4
	default:
		return assetTypeCredit12
	}
}

// canonical 为 destination_assets、source_assets 与 reserves 参数使用的形式。
func canonical(asset quote.Asset) string {
	if asset.IsNative() {
		return assetTypeNative
	}
	return asset.Code + ":" + asset.Issuer
}
