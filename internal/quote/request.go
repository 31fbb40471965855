package quote

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// LedgerPrecision 为账本原生精度（小数位）。
const LedgerPrecision int32 = 7

// QuoteRequest 为一次询价请求。
type QuoteRequest struct {
	SourceAsset Asset
	DestAsset   Asset
	Amount      decimal.Decimal
	Direction   Direction
}

// Validate 校验请求，所有问题合并为一个 ErrInvalidRequest。
func (r QuoteRequest) Validate() error {
	var err error

	if assetErr := r.SourceAsset.Validate(); assetErr != nil {
		err = multierr.Append(err, fmt.Errorf("源资产: %w", assetErr))
	}
	if assetErr := r.DestAsset.Validate(); assetErr != nil {
		err = multierr.Append(err, fmt.Errorf("目标资产: %w", assetErr))
	}
	if r.SourceAsset.Equal(r.DestAsset) {
		err = multierr.Append(err, errors.New("源资产与目标资产不能相同"))
	}
	if !r.Amount.IsPositive() {
		err = multierr.Append(err, errors.New("数量必须大于0"))
	} else if !r.Amount.Equal(r.Amount.Truncate(LedgerPrecision)) {
		err = multierr.Append(err, fmt.Errorf("数量最多保留 %d 位小数", LedgerPrecision))
	}
	if r.Direction != DirectionSend && r.Direction != DirectionReceive {
		err = multierr.Append(err, fmt.Errorf("未知方向 %q", r.Direction))
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
