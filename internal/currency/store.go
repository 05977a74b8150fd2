// Package currency converts order amounts into the reporting currency.
package currency

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultField = "*"

var (
	// ErrInvalidRate is returned for non-finite or non-positive rates.
	ErrInvalidRate = errors.New("currency: rate must be a positive number")
	// ErrInvalidCountry is returned for a blank country.
	ErrInvalidCountry = errors.New("currency: country required")
)

// Rates is an exported view of the conversion table.
type Rates struct {
	Default   float64            `json:"default"`
	Countries map[string]float64 `json:"countries"`
}

// Store keeps per-country multipliers and a global default, persisted in a Redis hash.
type Store struct {
	mu        sync.RWMutex
	client    *redis.Client
	key       string
	def       float64
	countries map[string]float64
}

// NewStore constructs an empty table for one user. A nil client keeps rates in memory.
func NewStore(client *redis.Client, userID int64) *Store {
	return &Store{
		client:    client,
		key:       "opsboard:rates:" + strconv.FormatInt(userID, 10),
		def:       1,
		countries: map[string]float64{},
	}
}

// Load replaces the table with the persisted rates. Unparseable entries are skipped.
func (s *Store) Load(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("currency: load rates: %w", err)
	}
	def := 1.0
	countries := make(map[string]float64, len(fields))
	for field, raw := range fields {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || validate(rate) != nil {
			continue
		}
		if field == defaultField {
			def = rate
			continue
		}
		countries[field] = rate
	}
	s.mu.Lock()
	s.def = def
	s.countries = countries
	s.mu.Unlock()
	return nil
}

// RateFor returns the explicit rate of country, else the default rate.
func (s *Store) RateFor(country string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.countries[country]; ok {
		return rate
	}
	return s.def
}

// Convert prices amount for country, rounded half away from zero to two decimals.
func (s *Store) Convert(amount float64, country string) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(s.RateFor(country))).Round(2).Float64()
	return f
}

// SetRate stores an explicit rate for a country.
func (s *Store) SetRate(ctx context.Context, country string, rate float64) error {
	country = strings.TrimSpace(country)
	if country == "" {
		return ErrInvalidCountry
	}
	if err := validate(rate); err != nil {
		return err
	}
	if err := s.hset(ctx, country, rate); err != nil {
		return err
	}
	s.mu.Lock()
	s.countries[country] = rate
	s.mu.Unlock()
	return nil
}

// RemoveRate drops the explicit rate of a country so it falls back to the default.
func (s *Store) RemoveRate(ctx context.Context, country string) error {
	country = strings.TrimSpace(country)
	if country == "" {
		return ErrInvalidCountry
	}
	if s.client != nil {
		if err := s.client.HDel(ctx, s.key, country).Err(); err != nil {
			return fmt.Errorf("currency: remove rate: %w", err)
		}
	}
	s.mu.Lock()
	delete(s.countries, country)
	s.mu.Unlock()
	return nil
}

// SetDefault changes the fallback rate.
func (s *Store) SetDefault(ctx context.Context, rate float64) error {
	if err := validate(rate); err != nil {
		return err
	}
	if err := s.hset(ctx, defaultField, rate); err != nil {
		return err
	}
	s.mu.Lock()
	s.def = rate
	s.mu.Unlock()
	return nil
}

// Snapshot copies the current table.
func (s *Store) Snapshot() Rates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Rates{Default: s.def, Countries: maps.Clone(s.countries)}
}

func (s *Store) hset(ctx context.Context, field string, rate float64) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.HSet(ctx, s.key, field, strconv.FormatFloat(rate, 'f', -1, 64)).Err(); err != nil {
		return fmt.Errorf("currency: save rate: %w", err)
	}
	return nil
}

func validate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return ErrInvalidRate
	}
	return nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
