package stats

import (
	"sort"

	"github.com/opsboard/opsboard/internal/filters"
	"github.com/opsboard/opsboard/internal/orders"
	"github.com/opsboard/opsboard/internal/status"
)

// TrendPoint aggregates one calendar day.
type TrendPoint struct {
	Date      string  `json:"date"`
	Leads     int     `json:"leads"`
	Confirmed int     `json:"confirmed"`
	Delivered int     `json:"delivered"`
	Returned  int     `json:"returned"`
	Revenue   float64 `json:"revenue"`
}

// DailyTrend buckets matching dated orders per day, ascending by date.
func DailyTrend(list []orders.Order, f filters.Filter, cfg status.Config) []TrendPoint {
	byDay := map[string]*TrendPoint{}
	for _, o := range list {
		day := o.Day()
		if day == "" || !Match(o, f) {
			continue
		}
		p := byDay[day]
		if p == nil {
			p = &TrendPoint{Date: day}
			byDay[day] = p
		}
		c := cfg.Classify(o.Status)
		p.Leads++
		if c.Confirmation {
			p.Confirmed++
		}
		if c.Delivery {
			p.Delivered++
			p.Revenue += o.Amount
		}
		if c.Returned {
			p.Returned++
		}
	}
	points := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
