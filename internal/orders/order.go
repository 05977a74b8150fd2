package orders

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used across filters and ledgers.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04:05",
}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Order is the typed view of a record consumed by aggregation.
type Order struct {
	ID       string     `json:"orderId"`
	Date     *time.Time `json:"orderDate"`
	Status   string     `json:"status"`
	Amount   float64    `json:"amount"`
	Quantity int        `json:"quantity"`
	Product  string     `json:"product"`
	City     string     `json:"city"`
	Country  string     `json:"country"`
	Agent    string     `json:"agent"`
	Source   string     `json:"sourceTraffic"`
}

// Day returns the order date as YYYY-MM-DD, or "" when undated.
func (o Order) Day() string {
	if o.Date == nil {
		return ""
	}
	return o.Date.Format(DateLayout)
}

// Converter prices an amount for a destination country.
type Converter interface {
	Convert(amount float64, country string) float64
}

// Normalize maps a raw record onto Order.
func Normalize(rec Record) Order {
	o := Order{
		ID:       ExtractString(rec, IDAliases),
		Status:   ExtractString(rec, StatusAliases),
		Amount:   ExtractAmount(rec),
		Quantity: ExtractQuantity(rec),
		Product:  ExtractString(rec, ProductAliases),
		City:     ExtractString(rec, CityAliases),
		Country:  ExtractString(rec, CountryAliases),
		Agent:    ExtractString(rec, AgentAliases),
		Source:   ExtractString(rec, SourceAliases),
	}
	for _, alias := range DateAliases {
		v, ok := present(rec, alias)
		if !ok {
			continue
		}
		if t, ok := ParseDate(v); ok {
			o.Date = &t
		}
		break
	}
	return o
}

// NormalizeAll normalizes records and converts amounts once. A nil converter keeps amounts as-is.
func NormalizeAll(recs []Record, conv Converter) []Order {
	out := make([]Order, 0, len(recs))
	for _, rec := range recs {
		o := Normalize(rec)
		if conv != nil {
			o.Amount = conv.Convert(o.Amount, o.Country)
		}
		out = append(out, o)
	}
	return out
}

// ParseDate accepts the layouts found in order sheets plus spreadsheet serial days.
func ParseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case float64:
		return fromSerial(val)
	case int:
		return fromSerial(float64(val))
	case int64:
		return fromSerial(float64(val))
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
	}
	return time.Time{}, false
}

func fromSerial(days float64) (time.Time, bool) {
	// 2958465 is 9999-12-31
	if days < 1 || days > 2958465 {
		return time.Time{}, false
	}
	whole := int(days)
	frac := days - float64(whole)
	t := sheetsEpoch.AddDate(0, 0, whole).Add(time.Duration(frac * float64(24*time.Hour)).Round(time.Second))
	return t, true
}
