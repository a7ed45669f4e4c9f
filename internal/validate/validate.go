package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const maxNameLen = 120

// MaxPrice is the exclusive upper bound for prices; it matches NUMERIC(12,2).
var MaxPrice = decimal.New(1, 10)

var (
	// generated asset names: uuid + fixed image extension
	reAssetName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpeg|png)$`)
)

// ID parses a positive integer resource id (product/category ids).
func ID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ProductName trims and enforces a non-empty name with a max length.
func ProductName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxNameLen {
		return "", false
	}
	return s, true
}

// Price accepts strictly positive amounts below MaxPrice with at most two
// decimal places.
func Price(p decimal.Decimal) (decimal.Decimal, bool) {
	if !p.IsPositive() || p.GreaterThanOrEqual(MaxPrice) {
		return decimal.Zero, false
	}
	if p.Exponent() < -2 && !p.Equal(p.Round(2)) {
		return decimal.Zero, false
	}
	return p, true
}

// AssetName checks a filename has the shape the storage service generates,
// which also rules out separators and traversal.
func AssetName(s string) (string, bool) {
	return s, reAssetName.MatchString(s)
}
