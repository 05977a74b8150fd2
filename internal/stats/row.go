// Package stats derives per-group order metrics from normalized orders.
//
// Every function here is pure: the same orders, filter and status
// configuration always produce the same rows.
package stats

import (
	"errors"
	"fmt"
)

// GroupKey selects the order attribute rows are grouped by.
type GroupKey string

// Supported groupings.
const (
	ByProduct GroupKey = "product"
	ByCity    GroupKey = "city"
	ByAgent   GroupKey = "agent"
	ByCountry GroupKey = "country"
)

// Unknown labels orders whose group attribute is empty.
const Unknown = "Unknown"

// ErrUnknownGroup is returned for grouping names outside the supported set.
var ErrUnknownGroup = errors.New("stats: unknown group key")

// ParseGroupKey validates a grouping name.
func ParseGroupKey(v string) (GroupKey, error) {
	switch GroupKey(v) {
	case ByProduct, ByCity, ByAgent, ByCountry:
		return GroupKey(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroup, v)
}

// Row is one aggregated group.
type Row struct {
	Key string `json:"key"`

	TotalLeads   int `json:"totalLeads"`
	Confirmation int `json:"confirmation"`
	Delivery     int `json:"delivery"`
	Returned     int `json:"returned"`
	InProcess    int `json:"inProcess"`

	ConfirmationPercent float64 `json:"confirmationPercent"`
	DeliveryPercent     float64 `json:"deliveryPercent"`
	ReturnedPercent     float64 `json:"returnedPercent"`
	InProcessPercent    float64 `json:"inProcessPercent"`

	TotalQuantity int     `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
	SellingPrice  float64 `json:"sellingPrice"`

	CostPrice float64 `json:"costPrice"`
	AdCost    float64 `json:"adCost"`
	AvgCost   float64 `json:"avgCost"`
	TotalCost float64 `json:"totalCost"`
	NetProfit float64 `json:"netProfit"`
}

// TotalOrders is the order count cost averages are taken over.
func (r Row) TotalOrders() int { return r.TotalLeads }

func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

func percent(n, d int) float64 {
	return safeDiv(float64(n), float64(d)) * 100
}
