package orders

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one raw sheet row keyed by column header.
type Record map[string]any

// Field alias lists in priority order.
var (
	AmountAliases   = []string{"Cod Amount", "Order Value", "Price", "Total", "Amount", "Value", "Revenue"}
	QuantityAliases = []string{"Quantity", "Qty", "Count", "Units"}
	IDAliases       = []string{"Order ID", "Order Id", "order_id", "ID"}
	DateAliases     = []string{"Order Date", "Date", "order_date", "Created At", "Timestamp"}
	StatusAliases   = []string{"Status", "Order Status", "status"}
	ProductAliases  = []string{"Product Name", "sku number", "product"}
	CityAliases     = []string{"City", "city"}
	CountryAliases  = []string{"Country", "country"}
	AgentAliases    = []string{"Agent", "agent", "Confirmation Agent"}
	SourceAliases   = []string{"Source Traffic", "Source", "source"}
)

// ExtractAmount resolves the order amount. Missing or unparseable values yield 0.
func ExtractAmount(rec Record) float64 {
	for _, alias := range AmountAliases {
		v, ok := present(rec, alias)
		if !ok {
			continue
		}
		if n, ok := toNumber(v, keepAmountChars); ok {
			return n
		}
	}
	return 0
}

// ExtractQuantity resolves the unit count. Missing or unparseable values yield 1,
// since every order stands for at least one unit.
func ExtractQuantity(rec Record) int {
	for _, alias := range QuantityAliases {
		v, ok := present(rec, alias)
		if !ok {
			continue
		}
		if n, ok := toNumber(v, keepDigits); ok && validQuantity(n) {
			return int(n)
		}
	}
	return 1
}

// validQuantity accepts whole counts in [0, MaxInt32].
func validQuantity(n float64) bool {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return false
	}
	return n >= 0 && n <= math.MaxInt32 && n == math.Trunc(n)
}

// ExtractString returns the first non-empty alias value as trimmed text.
func ExtractString(rec Record, aliases []string) string {
	for _, alias := range aliases {
		v, ok := present(rec, alias)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(toText(v)); s != "" {
			return s
		}
	}
	return ""
}

func present(rec Record, key string) (any, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

func toNumber(v any, clean func(rune) bool) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case float32:
		n = float64(val)
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case int32:
		n = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if clean(r) {
				return r
			}
			return -1
		}, val)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func keepAmountChars(r rune) bool { return (r >= '0' && r <= '9') || r == '.' }

func keepDigits(r rune) bool { return r >= '0' && r <= '9' }

func toText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
