package quote

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// NativeCode 为网络原生资产代码。
	NativeCode = "XLM"

	nativeLabel     = "native"
	maxCodeLength   = 12
	issuerKeyLength = 56
)

// Asset 表示账本上的资产，Issuer 为空即原生资产。
type Asset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer,omitempty"`
}

// Native 返回原生资产。
func Native() Asset {
	return Asset{Code: NativeCode}
}

// IsNative 判断是否为原生资产。
func (a Asset) IsNative() bool {
	return a.Issuer == ""
}

// Equal 按代码与发行方逐字比较，大小写敏感。
func (a Asset) Equal(other Asset) bool {
	return a.Code == other.Code && a.Issuer == other.Issuer
}

// String 返回 native 或 CODE:ISSUER 形式。
func (a Asset) String() string {
	if a.IsNative() {
		return nativeLabel
	}
	return a.Code + ":" + a.Issuer
}

// Validate 校验资产格式。
func (a Asset) Validate() error {
	if a.IsNative() {
		if a.Code != NativeCode {
			return fmt.Errorf("资产 %q 缺少发行方", a.Code)
		}
		return nil
	}

	if a.Code == "" {
		return errors.New("资产代码不能为空")
	}
	if len(a.Code) > maxCodeLength {
		return fmt.Errorf("资产代码 %q 超过 %d 个字符", a.Code, maxCodeLength)
	}
	for _, r := range a.Code {
		if !isAlphanumeric(r) {
			return fmt.Errorf("资产代码 %q 含非法字符", a.Code)
		}
	}
	if !validIssuer(a.Issuer) {
		return fmt.Errorf("资产 %s 的发行方格式无效", a.Code)
	}

	return nil
}

// ParseAsset 解析 native、XLM 或 CODE:ISSUER 字符串。
func ParseAsset(value string) (Asset, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Asset{}, errors.New("资产不能为空")
	}
	if strings.EqualFold(trimmed, nativeLabel) || trimmed == NativeCode {
		return Native(), nil
	}

	code, issuer, ok := strings.Cut(trimmed, ":")
	if !ok {
		return Asset{}, fmt.Errorf("资产 %q 应为 CODE:ISSUER 格式", trimmed)
	}

	asset := Asset{Code: code, Issuer: issuer}
	if err := asset.Validate(); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

func validIssuer(issuer string) bool {
	if len(issuer) != issuerKeyLength || issuer[0] != 'G' {
		return false
	}
	// strkey 使用 RFC4648 base32 字母表
	for _, r := range issuer {
		if !(r >= 'A' && r <= 'Z') && !(r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
