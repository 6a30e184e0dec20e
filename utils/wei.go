package utils

import (
	"math/big"
	"strings"

	"github.com/grtinfo/grtinfo/constants"
)

var weiPerGRT = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(constants.GRTDecimals), nil))

// ParseWei reads a decimal token amount. Integer strings are parsed exactly;
// decimal or scientific notation (as some analytics subgraphs return) is
// truncated towards zero. Invalid input yields zero.
func ParseWei(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int)
	}
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		return new(big.Int)
	}
	if f.IsInf() {
		return new(big.Int)
	}
	v, _ := f.Int(nil)
	if v == nil {
		return new(big.Int)
	}
	return v
}

// WeiToGRT converts a wei amount to whole GRT as a float.
func WeiToGRT(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f := new(big.Float).SetInt(wei)
	grt, _ := new(big.Float).Quo(f, weiPerGRT).Float64()
	return grt
}

// GRT is shorthand for WeiToGRT(ParseWei(s)).
func GRT(s string) float64 {
	return WeiToGRT(ParseWei(s))
}
