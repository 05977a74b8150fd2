// Package filters holds the persisted filter selection shared by every stats view.
package filters

import (
	"errors"
	"fmt"
	"time"
)

// Key names one filter field.
type Key string

// Filter keys.
const (
	StartDate Key = "startDate"
	EndDate   Key = "endDate"
	Product   Key = "product"
	City      Key = "city"
	Country   Key = "country"
	Agent     Key = "agent"
	Source    Key = "source"
)

// Keys lists every filter key.
var Keys = []Key{StartDate, EndDate, Product, City, Country, Agent, Source}

// All is the sentinel value meaning "no restriction".
const All = "all"

const dateLayout = "2006-01-02"

var (
	// ErrUnknownKey is returned for keys outside Keys.
	ErrUnknownKey = errors.New("filters: unknown key")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("filters: date must be YYYY-MM-DD")
)

// Filter is the active selection. Empty and "all" both mean unset.
type Filter struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Product   string `json:"product"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Agent     string `json:"agent"`
	Source    string `json:"source"`
}

// ParseKey validates a key name.
func ParseKey(v string) (Key, error) {
	for _, k := range Keys {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, v)
}

// Set returns a copy of f with key changed to value.
func (f Filter) Set(key Key, value string) (Filter, error) {
	switch key {
	case StartDate, EndDate:
		if IsSet(value) {
			if _, err := time.Parse(dateLayout, value); err != nil {
				return f, fmt.Errorf("%w: %q", ErrInvalidDate, value)
			}
		}
	}
	switch key {
	case StartDate:
		f.StartDate = value
	case EndDate:
		f.EndDate = value
	case Product:
		f.Product = value
	case City:
		f.City = value
	case Country:
		f.Country = value
	case Agent:
		f.Agent = value
	case Source:
		f.Source = value
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f, nil
}

// Value returns a field's value, or "" when unset.
func (f Filter) Value(key Key) string {
	var v string
	switch key {
	case StartDate:
		v = f.StartDate
	case EndDate:
		v = f.EndDate
	case Product:
		v = f.Product
	case City:
		v = f.City
	case Country:
		v = f.Country
	case Agent:
		v = f.Agent
	case Source:
		v = f.Source
	}
	if !IsSet(v) {
		return ""
	}
	return v
}

// IsRange reports whether both date bounds are set.
func (f Filter) IsRange() bool {
	return f.Value(StartDate) != "" && f.Value(EndDate) != ""
}

// Start parses the start bound.
func (f Filter) Start() (time.Time, bool) { return parseDay(f.Value(StartDate)) }

// End parses the end bound.
func (f Filter) End() (time.Time, bool) { return parseDay(f.Value(EndDate)) }

// IsSet reports whether a filter value restricts anything.
func IsSet(v string) bool {
	return v != "" && v != All
}

func parseDay(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
