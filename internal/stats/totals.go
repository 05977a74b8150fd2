package stats

// Totals is the synthetic totals row: the column-wise sum of the group rows.
// Percent and per-unit columns are not summed; Rates derives them instead.
type Totals struct {
	TotalLeads    int     `json:"totalLeads"`
	Confirmation  int     `json:"confirmation"`
	Delivery      int     `json:"delivery"`
	Returned      int     `json:"returned"`
	InProcess     int     `json:"inProcess"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
	CostPrice     float64 `json:"costPrice"`
	AdCost        float64 `json:"adCost"`
	TotalCost     float64 `json:"totalCost"`
	NetProfit     float64 `json:"netProfit"`
}

// Rates holds ratios derived from summed counts.
type Rates struct {
	ConfirmationPercent float64 `json:"confirmationPercent"`
	DeliveryPercent     float64 `json:"deliveryPercent"`
	ReturnedPercent     float64 `json:"returnedPercent"`
	InProcessPercent    float64 `json:"inProcessPercent"`
	SellingPrice        float64 `json:"sellingPrice"`
	AvgCost             float64 `json:"avgCost"`
}

// Total sums rows in row order.
func Total(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t.TotalLeads += r.TotalLeads
		t.Confirmation += r.Confirmation
		t.Delivery += r.Delivery
		t.Returned += r.Returned
		t.InProcess += r.InProcess
		t.TotalQuantity += r.TotalQuantity
		t.TotalAmount += r.TotalAmount
		t.CostPrice += r.CostPrice
		t.AdCost += r.AdCost
		t.TotalCost += r.TotalCost
		t.NetProfit += r.NetProfit
	}
	return t
}

// Rates derives the totals row ratios with the same guards as group rows.
func (t Totals) Rates() Rates {
	return Rates{
		ConfirmationPercent: percent(t.Confirmation, t.TotalLeads),
		DeliveryPercent:     percent(t.Delivery, t.Confirmation),
		ReturnedPercent:     percent(t.Returned, t.Confirmation),
		InProcessPercent:    percent(t.InProcess, t.TotalLeads),
		SellingPrice:        safeDiv(t.TotalAmount, float64(t.Delivery)),
		AvgCost:             safeDiv(t.AdCost, float64(t.TotalLeads)),
	}
}
