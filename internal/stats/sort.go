package stats

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction orders a sort.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ErrUnknownSortField is returned for sort fields outside SortFields.
var ErrUnknownSortField = errors.New("stats: unknown sort field")

var numericFields = map[string]func(Row) float64{
	"totalLeads":          func(r Row) float64 { return float64(r.TotalLeads) },
	"confirmation":        func(r Row) float64 { return float64(r.Confirmation) },
	"delivery":            func(r Row) float64 { return float64(r.Delivery) },
	"returned":            func(r Row) float64 { return float64(r.Returned) },
	"inProcess":           func(r Row) float64 { return float64(r.InProcess) },
	"confirmationPercent": func(r Row) float64 { return r.ConfirmationPercent },
	"deliveryPercent":     func(r Row) float64 { return r.DeliveryPercent },
	"returnedPercent":     func(r Row) float64 { return r.ReturnedPercent },
	"inProcessPercent":    func(r Row) float64 { return r.InProcessPercent },
	"totalQuantity":       func(r Row) float64 { return float64(r.TotalQuantity) },
	"totalAmount":         func(r Row) float64 { return r.TotalAmount },
	"sellingPrice":        func(r Row) float64 { return r.SellingPrice },
	"costPrice":           func(r Row) float64 { return r.CostPrice },
	"adCost":              func(r Row) float64 { return r.AdCost },
	"avgCost":             func(r Row) float64 { return r.AvgCost },
	"totalCost":           func(r Row) float64 { return r.TotalCost },
	"netProfit":           func(r Row) float64 { return r.NetProfit },
}

// KeyField sorts by the group label.
const KeyField = "key"

// ParseSort validates a field and direction. Empty direction means ascending.
func ParseSort(field, dir string) (string, Direction, error) {
	if field != KeyField {
		if _, ok := numericFields[field]; !ok {
			return "", "", fmt.Errorf("%w: %q", ErrUnknownSortField, field)
		}
	}
	switch Direction(dir) {
	case "", Asc:
		return field, Asc, nil
	case Desc:
		return field, Desc, nil
	}
	return "", "", fmt.Errorf("stats: unknown sort direction %q", dir)
}

// Sort returns a stably sorted copy of rows. The group label compares by
// locale collation, numeric columns by difference. Unknown fields keep the
// input order.
func Sort(rows []Row, field string, dir Direction, locale language.Tag) []Row {
	out := slices.Clone(rows)
	var compare func(a, b Row) int
	if field == KeyField {
		col := collate.New(locale)
		compare = func(a, b Row) int { return col.CompareString(a.Key, b.Key) }
	} else if get, ok := numericFields[field]; ok {
		compare = func(a, b Row) int { return sign(get(a) - get(b)) }
	} else {
		return out
	}
	if dir == Desc {
		asc := compare
		compare = func(a, b Row) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func sign(d float64) int {
	return cmp.Compare(d, 0)
}
