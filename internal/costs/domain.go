// Package costs tracks manually entered sourcing and advertising costs.
package costs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Platform identifies an advertising channel.
type Platform string

// Supported platforms.
const (
	Facebook Platform = "fb"
	TikTok   Platform = "tt"
	Google   Platform = "google"
	X        Platform = "x"
	Snapchat Platform = "snap"
)

// Platforms lists every platform in display order.
var Platforms = []Platform{Facebook, TikTok, Google, X, Snapchat}

var (
	// ErrUnknownPlatform is returned for platforms outside Platforms.
	ErrUnknownPlatform = errors.New("costs: unknown platform")
	// ErrInvalidValue is returned for non-numeric or negative cost input.
	ErrInvalidValue = errors.New("costs: value must be a non-negative number")
	// ErrEmptyProduct is returned when no product is named.
	ErrEmptyProduct = errors.New("costs: product required")
)

// ParsePlatform validates a platform name.
func ParsePlatform(v string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, v)
}

// Entry is a cost value as entered. The zero Entry means "not set", which is
// distinct from an explicit "0".
type Entry string

// IsSet reports whether a value was entered.
func (e Entry) IsSet() bool { return e != "" }

// Float returns the numeric value, 0 when unset.
func (e Entry) Float() float64 {
	f, err := strconv.ParseFloat(string(e), 64)
	if err != nil {
		return 0
	}
	return f
}

func entryFromFloat(f float64) Entry {
	return Entry(strconv.FormatFloat(f, 'f', -1, 64))
}

// ParseEntry validates raw input. Blank input clears the value.
func ParseEntry(raw string) (Entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return Entry(raw), nil
}

// Snapshot is the exported form of both cost maps.
type Snapshot struct {
	ProductCosts  map[string]Entry                         `json:"productCosts"`
	AdCostsByDate map[string]map[string]map[Platform]Entry `json:"adCostsByDate"`
}

func productKey(product string) string { return "product_" + product }

func adKey(date, product string, platform Platform) string {
	return "ad_" + date + "_" + product + "_" + string(platform)
}

const (
	productPrefix = "product_"
	adPrefix      = "ad_"
)
