package status

import (
	"errors"
	"fmt"
	"slices"
)

// Category is a business bucket raw order statuses are counted in.
type Category string

// Supported categories. A raw status may belong to several of them.
const (
	Confirmation Category = "confirmation"
	Delivery     Category = "delivery"
	Returned     Category = "returned"
	InProcess    Category = "inProcess"
)

// Categories lists every category in display order.
var Categories = []Category{Confirmation, Delivery, Returned, InProcess}

var (
	// ErrUnknownCategory is returned for a category name outside Categories.
	ErrUnknownCategory = errors.New("status: unknown category")
	// ErrStatusExists is returned when registering an already known status.
	ErrStatusExists = errors.New("status: already exists")
	// ErrEmptyStatus is returned for blank status names.
	ErrEmptyStatus = errors.New("status: name required")
)

// ParseCategory validates a category name.
func ParseCategory(v string) (Category, error) {
	for _, c := range Categories {
		if string(c) == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, v)
}

// Config maps each category to the raw statuses counted in it.
type Config struct {
	Confirmation []string `json:"confirmation"`
	Delivery     []string `json:"delivery"`
	Returned     []string `json:"returned"`
	InProcess    []string `json:"inProcess"`
}

// List returns the statuses configured for a category.
func (c Config) List(cat Category) []string {
	switch cat {
	case Confirmation:
		return c.Confirmation
	case Delivery:
		return c.Delivery
	case Returned:
		return c.Returned
	case InProcess:
		return c.InProcess
	}
	return nil
}

func (c *Config) set(cat Category, list []string) {
	switch cat {
	case Confirmation:
		c.Confirmation = list
	case Delivery:
		c.Delivery = list
	case Returned:
		c.Returned = list
	case InProcess:
		c.InProcess = list
	}
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (c Config) Clone() Config {
	return Config{
		Confirmation: slices.Clone(c.Confirmation),
		Delivery:     slices.Clone(c.Delivery),
		Returned:     slices.Clone(c.Returned),
		InProcess:    slices.Clone(c.InProcess),
	}
}

// Classify tests a raw status against every category independently.
func (c Config) Classify(raw string) Classification {
	return Classification{
		Confirmation: Matches(raw, c.Confirmation),
		Delivery:     Matches(raw, c.Delivery),
		Returned:     Matches(raw, c.Returned),
		InProcess:    Matches(raw, c.InProcess),
	}
}

// Classification reports category membership of one order.
type Classification struct {
	Confirmation bool `json:"confirmation"`
	Delivery     bool `json:"delivery"`
	Returned     bool `json:"returned"`
	InProcess    bool `json:"inProcess"`
}

// Document is the persisted form of a user's status configuration.
type Document struct {
	Config   Config   `json:"config"`
	Statuses []string `json:"statuses"`
}

// DefaultConfig returns the built-in categorization.
func DefaultConfig() Config {
	return Config{
		Confirmation: []string{"Confirmed", "Shipped", "In Transit", "Out for Delivery", "Delivered", "Returned"},
		Delivery:     []string{"Delivered"},
		Returned:     []string{"Returned"},
		InProcess:    []string{"New", "Pending", "Processing", "No Answer", "Call Later"},
	}
}

// DefaultStatuses returns the built-in selectable status strings.
func DefaultStatuses() []string {
	return []string{
		"New", "Pending", "Processing", "No Answer", "Call Later",
		"Confirmed", "Shipped", "In Transit", "Out for Delivery",
		"Delivered", "Returned", "Cancelled", "Wrong Number", "Duplicate",
	}
}
