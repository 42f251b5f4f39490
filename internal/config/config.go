// Package config holds the immutable simulation configuration.
// A Simulation value is built once, validated eagerly, and threaded
// through every component constructor; there is no global config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// SellerParams configures one seller's initial cost/inventory draws.
type SellerParams struct {
	CostMin      int     `json:"cost_min"`
	CostMax      int     `json:"cost_max"`
	InventoryMin int     `json:"inv_min"`
	InventoryMax int     `json:"inv_max"`
	StartingCash float64 `json:"starting_cash"`
}

// ShopperParams configures one shopper segment's demand and pricing curve.
type ShopperParams struct {
	DemandMin    int     `json:"demand_min"`
	DemandMax    int     `json:"demand_max"`
	WindowMin    int     `json:"window_min"`
	WindowMax    int     `json:"window_max"`
	BasePriceMin float64 `json:"base_price_min"`
	BasePriceMax float64 `json:"base_price_max"`
	MaxPriceMin  float64 `json:"max_price_min"`
	MaxPriceMax  float64 `json:"max_price_max"`
	UrgencyMin   float64 `json:"urgency_min"`
	UrgencyMax   float64 `json:"urgency_max"`
}

// Simulation is the full configuration for one run.
type Simulation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	NumDays     int    `json:"num_days"`
	Seed        int64  `json:"seed"`

	Seller1 SellerParams `json:"seller_1"`
	Seller2 SellerParams `json:"seller_2"`

	WholesalerStartingCash float64 `json:"wholesaler_starting_cash"`
	SecondWholesaler       bool    `json:"second_wholesaler"`

	TotalShoppers int           `json:"total_shoppers"`
	LongTermRatio float64       `json:"long_term_ratio"`
	LongTerm      ShopperParams `json:"long_term"`
	ShortTerm     ShopperParams `json:"short_term"`

	NegotiationDays      []int `json:"negotiation_days"`
	MaxNegotiationRounds int   `json:"max_negotiation_rounds"`

	// Information regime toggles. These only change what context the
	// decision providers receive; the clearing mechanics are unaffected.
	EnableCommunication     bool `json:"enable_communication"`
	EnablePriceTransparency bool `json:"enable_price_transparency"`

	TransportCostPerUnit int  `json:"transport_cost_per_unit"`
	TransportCostEnabled bool `json:"transport_cost_enabled"`
}

// Default returns the baseline 100-day configuration.
func Default() Simulation {
	return Simulation{
		Name:    "baseline",
		NumDays: 100,
		Seed:    1,
		Seller1: SellerParams{
			CostMin: 58, CostMax: 62,
			InventoryMin: 7800, InventoryMax: 8200,
		},
		Seller2: SellerParams{
			CostMin: 68, CostMax: 72,
			InventoryMin: 1900, InventoryMax: 2100,
		},
		WholesalerStartingCash: 50000,
		TotalShoppers:          400,
		LongTermRatio:          0.7,
		LongTerm: ShopperParams{
			DemandMin: 20, DemandMax: 50,
			WindowMin: 50, WindowMax: 90,
			BasePriceMin: 80, BasePriceMax: 100,
			MaxPriceMin: 110, MaxPriceMax: 130,
			UrgencyMin: 0.7, UrgencyMax: 1.2,
		},
		ShortTerm: ShopperParams{
			DemandMin: 30, DemandMax: 50,
			WindowMin: 10, WindowMax: 20,
			BasePriceMin: 100, BasePriceMax: 120,
			MaxPriceMin: 120, MaxPriceMax: 150,
			UrgencyMin: 1.5, UrgencyMax: 2.5,
		},
		NegotiationDays:         []int{1, 21, 41, 61, 81},
		MaxNegotiationRounds:    10,
		EnableCommunication:     true,
		EnablePriceTransparency: true,
		TransportCostPerUnit:    1,
		TransportCostEnabled:    true,
	}
}

// Validate checks range sanity. It runs before any simulation day and
// fails fast on a broken configuration.
func (c Simulation) Validate() error {
	if c.NumDays < 1 {
		return fmt.Errorf("num_days must be at least 1, got %d", c.NumDays)
	}
	if err := c.Seller1.validate("seller_1"); err != nil {
		return err
	}
	if err := c.Seller2.validate("seller_2"); err != nil {
		return err
	}
	if c.TotalShoppers < 0 {
		return fmt.Errorf("total_shoppers must be non-negative, got %d", c.TotalShoppers)
	}
	if c.LongTermRatio < 0 || c.LongTermRatio > 1 {
		return fmt.Errorf("long_term_ratio must be within [0,1], got %g", c.LongTermRatio)
	}
	if err := c.LongTerm.validate("long_term"); err != nil {
		return err
	}
	if err := c.ShortTerm.validate("short_term"); err != nil {
		return err
	}
	if c.MaxNegotiationRounds < 1 {
		return fmt.Errorf("max_negotiation_rounds must be at least 1, got %d", c.MaxNegotiationRounds)
	}
	for _, d := range c.NegotiationDays {
		if d < 1 || d > c.NumDays {
			return fmt.Errorf("negotiation day %d outside simulation range 1..%d", d, c.NumDays)
		}
	}
	if c.TransportCostPerUnit < 0 {
		return fmt.Errorf("transport_cost_per_unit must be non-negative, got %d", c.TransportCostPerUnit)
	}
	return nil
}

func (p SellerParams) validate(name string) error {
	if p.CostMin > p.CostMax {
		return fmt.Errorf("%s: cost_min (%d) > cost_max (%d)", name, p.CostMin, p.CostMax)
	}
	if p.InventoryMin > p.InventoryMax {
		return fmt.Errorf("%s: inv_min (%d) > inv_max (%d)", name, p.InventoryMin, p.InventoryMax)
	}
	if p.InventoryMin < 0 {
		return fmt.Errorf("%s: inv_min must be non-negative, got %d", name, p.InventoryMin)
	}
	return nil
}

func (p ShopperParams) validate(name string) error {
	if p.DemandMin > p.DemandMax {
		return fmt.Errorf("%s: demand_min (%d) > demand_max (%d)", name, p.DemandMin, p.DemandMax)
	}
	if p.WindowMin > p.WindowMax {
		return fmt.Errorf("%s: window_min (%d) > window_max (%d)", name, p.WindowMin, p.WindowMax)
	}
	if p.BasePriceMin > p.BasePriceMax {
		return fmt.Errorf("%s: base_price_min (%g) > base_price_max (%g)", name, p.BasePriceMin, p.BasePriceMax)
	}
	if p.MaxPriceMin > p.MaxPriceMax {
		return fmt.Errorf("%s: max_price_min (%g) > max_price_max (%g)", name, p.MaxPriceMin, p.MaxPriceMax)
	}
	if p.UrgencyMin > p.UrgencyMax {
		return fmt.Errorf("%s: urgency_min (%g) > urgency_max (%g)", name, p.UrgencyMin, p.UrgencyMax)
	}
	return nil
}

// IsNegotiationDay reports whether day is on the negotiation schedule.
func (c Simulation) IsNegotiationDay(day int) bool {
	for _, d := range c.NegotiationDays {
		if d == day {
			return true
		}
	}
	return false
}

// Load reads a JSON configuration file, applying defaults for absent
// fields, and validates the result.
func Load(path string) (Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Simulation{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Simulation{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Simulation{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
