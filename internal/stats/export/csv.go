// Package export writes aggregated stats as flat CSV tables.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/opsboard/opsboard/internal/stats"
)

// TotalsLabel names the synthetic totals row.
const TotalsLabel = "Total"

// Options select the optional column groups.
type Options struct {
	// KeyHeader is the first column title, e.g. "Product".
	KeyHeader string
	// WithCosts adds the cost join columns.
	WithCosts bool
}

// WriteRowsCSV emits one line per group followed by the totals row. Money is
// fixed to two decimals.
func WriteRowsCSV(w io.Writer, rows []stats.Row, totals stats.Totals, opts Options) error {
	writer := csv.NewWriter(w)

	header := []string{
		or(opts.KeyHeader, "Key"), "Total Leads", "Confirmation", "Confirmation %",
		"Delivery", "Delivery %", "Returned", "Returned %", "In Process", "In Process %",
		"Total Quantity", "Selling Price", "Total Amount",
	}
	if opts.WithCosts {
		header = append(header, "Cost Price", "Ad Cost", "Avg Cost", "Total Cost", "Net Profit")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Key, itoa(r.TotalLeads),
			itoa(r.Confirmation), money(r.ConfirmationPercent),
			itoa(r.Delivery), money(r.DeliveryPercent),
			itoa(r.Returned), money(r.ReturnedPercent),
			itoa(r.InProcess), money(r.InProcessPercent),
			itoa(r.TotalQuantity), money(r.SellingPrice), money(r.TotalAmount),
		}
		if opts.WithCosts {
			record = append(record, money(r.CostPrice), money(r.AdCost), money(r.AvgCost), money(r.TotalCost), money(r.NetProfit))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	rates := totals.Rates()
	record := []string{
		TotalsLabel, itoa(totals.TotalLeads),
		itoa(totals.Confirmation), money(rates.ConfirmationPercent),
		itoa(totals.Delivery), money(rates.DeliveryPercent),
		itoa(totals.Returned), money(rates.ReturnedPercent),
		itoa(totals.InProcess), money(rates.InProcessPercent),
		itoa(totals.TotalQuantity), money(rates.SellingPrice), money(totals.TotalAmount),
	}
	if opts.WithCosts {
		record = append(record, money(totals.CostPrice), money(totals.AdCost), money(rates.AvgCost), money(totals.TotalCost), money(totals.NetProfit))
	}
	if err := writer.Write(record); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV emits the daily trend series.
func WriteTrendCSV(w io.Writer, points []stats.TrendPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Leads", "Confirmed", "Delivered", "Returned", "Revenue"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			p.Date, itoa(p.Leads), itoa(p.Confirmed), itoa(p.Delivered), itoa(p.Returned), money(p.Revenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func itoa(v int) string { return strconv.Itoa(v) }

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
