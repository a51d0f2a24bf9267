package settle

import (
	"fmt"
	"math/big"
	"strings"
)

// weiPerEther is 10^18; all pool arithmetic happens in integer wei so the
// 50/30/20 split never drifts.
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal ether string ("0.003") to wei. At most 18
// fractional digits are allowed.
func ParseEther(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("parse ether: empty value")
	}

	whole := value
	frac := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("parse ether %q: more than 18 fractional digits", value)
	}

	wholeWei, ok := new(big.Int).SetString(whole, 10)
	if !ok || wholeWei.Sign() < 0 {
		return nil, fmt.Errorf("parse ether %q: invalid amount", value)
	}
	wholeWei.Mul(wholeWei, weiPerEther)

	if frac != "" {
		fracWei, ok := new(big.Int).SetString(frac, 10)
		if !ok || fracWei.Sign() < 0 {
			return nil, fmt.Errorf("parse ether %q: invalid fraction", value)
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-len(frac))), nil)
		wholeWei.Add(wholeWei, fracWei.Mul(fracWei, scale))
	}
	return wholeWei, nil
}

// MustParseEther panics on malformed input; for package-level constants only.
func MustParseEther(value string) *big.Int {
	amount, err := ParseEther(value)
	if err != nil {
		panic(err)
	}
	return amount
}

// FormatEther renders wei as a decimal ether string with trailing zeros
// trimmed ("0.003", "1.5", "0").
func FormatEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	whole, frac := new(big.Int).QuoRem(new(big.Int).Set(wei), weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	digits := strings.TrimRight(fmt.Sprintf("%018s", frac.String()), "0")
	return fmt.Sprintf("%s.%s", whole.String(), digits)
}
