package stats

import (
	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/status"
)

// Match reports whether an order falls inside the filter scope. A start date
// alone selects that single day, an end date alone selects everything up to
// it, and undated orders never match while a date bound is set.
func Match(o orders.Order, f filters.Filter) bool {
	start, end := f.Value(filters.StartDate), f.Value(filters.EndDate)
	if start != "" || end != "" {
		day := o.Day()
		if day == "" {
			return false
		}
		switch {
		case start != "" && end != "":
			if day < start || day > end {
				return false
			}
		case start != "":
			if day != start {
				return false
			}
		default:
			if day > end {
				return false
			}
		}
	}
	return matches(f.Value(filters.Product), o.Product) &&
		matches(f.Value(filters.City), o.City) &&
		matches(f.Value(filters.Country), o.Country) &&
		matches(f.Value(filters.Agent), o.Agent) &&
		matches(f.Value(filters.Source), o.Source)
}

func matches(want, got string) bool {
	return want == "" || want == got
}

// Scope returns the orders inside the filter, preserving order.
func Scope(list []orders.Order, f filters.Filter) []orders.Order {
	out := make([]orders.Order, 0, len(list))
	for _, o := range list {
		if Match(o, f) {
			out = append(out, o)
		}
	}
	return out
}

// GroupValue returns the grouping attribute of an order, or Unknown.
func GroupValue(o orders.Order, key GroupKey) string {
	var v string
	switch key {
	case ByProduct:
		v = o.Product
	case ByCity:
		v = o.City
	case ByAgent:
		v = o.Agent
	case ByCountry:
		v = o.Country
	}
	if v == "" {
		return Unknown
	}
	return v
}

// Aggregate filters, classifies and groups orders. Counts and quantities
// cover every matching order; amounts and selling price cover delivered
// orders only. Rows come back in first-appearance order of their group.
func Aggregate(list []orders.Order, f filters.Filter, cfg status.Config, key GroupKey) []Row {
	index := map[string]int{}
	rows := []Row{}
	for _, o := range list {
		if !Match(o, f) {
			continue
		}
		g := GroupValue(o, key)
		i, ok := index[g]
		if !ok {
			i = len(rows)
			index[g] = i
			rows = append(rows, Row{Key: g})
		}
		r := &rows[i]
		c := cfg.Classify(o.Status)

		r.TotalLeads++
		r.TotalQuantity += o.Quantity
		if c.Confirmation {
			r.Confirmation++
		}
		if c.Delivery {
			r.Delivery++
			r.TotalAmount += o.Amount
		}
		if c.Returned {
			r.Returned++
		}
		if c.InProcess {
			r.InProcess++
		}
	}
	for i := range rows {
		derive(&rows[i])
	}
	return rows
}

func derive(r *Row) {
	r.SellingPrice = safeDiv(r.TotalAmount, float64(r.Delivery))
	r.ConfirmationPercent = percent(r.Confirmation, r.TotalLeads)
	r.DeliveryPercent = percent(r.Delivery, r.Confirmation)
	r.ReturnedPercent = percent(r.Returned, r.Confirmation)
	r.InProcessPercent = percent(r.InProcess, r.TotalLeads)
}
