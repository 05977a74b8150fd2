// Package sheets fetches raw order rows from a Google Sheet, either through
// the Sheets API or through the backend proxy that fronts it.
package sheets

import (
	"fmt"
	"strings"

	"github.com/opsboard/opsboard/internal/orders"
)

// RecordsFromValues turns a value range into records. The first row is the
// header; blank header cells and fully blank rows are skipped.
func RecordsFromValues(values [][]any) []orders.Record {
	if len(values) == 0 {
		return []orders.Record{}
	}
	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}
	out := make([]orders.Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := orders.Record{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || cell == nil {
				continue
			}
			if s, ok := cell.(string); ok && s == "" {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out
}
