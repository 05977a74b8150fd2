package stats

import (
	"github.com/opsboard/opsboard/internal/costs"
	"github.com/opsboard/opsboard/internal/filters"
)

// CostSource resolves the costs joined onto product rows.
type CostSource interface {
	ProductCost(product string) costs.Entry
	TotalAdCost(product string, filter filters.Filter) float64
}

// ApplyCosts joins product and ad costs onto product rows and returns new rows.
//
//	avgCost   = adCost / totalOrders
//	totalCost = avgCost*totalOrders + costPrice*totalQuantity
func ApplyCosts(rows []Row, src CostSource, f filters.Filter) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		r.CostPrice = src.ProductCost(r.Key).Float()
		r.AdCost = src.TotalAdCost(r.Key, f)
		count := float64(r.TotalOrders())
		r.AvgCost = safeDiv(r.AdCost, count)
		r.TotalCost = r.AvgCost*count + r.CostPrice*float64(r.TotalQuantity)
		r.NetProfit = r.TotalAmount - r.TotalCost
		out[i] = r
	}
	return out
}
