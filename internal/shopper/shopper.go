// Package shopper models the price-sensitive demand side: a population
// of shoppers with time-windowed demand and a willingness-to-pay curve
// that rises toward the end of each shopper's window.
package shopper

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/commodity-market/internal/config"
)

// Type distinguishes the two shopper segments.
type Type string

const (
	LongTerm  Type = "long_term"
	ShortTerm Type = "short_term"
)

// Record is one shopper in the persistent database. Only DemandRemaining
// mutates after creation, and only downward.
type Record struct {
	ID              string  `json:"shopper_id"`
	Type            Type    `json:"shopper_type"`
	TotalDemand     int     `json:"total_demand"`
	DemandRemaining int     `json:"demand_remaining"`
	WindowStart     int     `json:"shopping_window_start"`
	WindowEnd       int     `json:"shopping_window_end"`
	BasePrice       float64 `json:"base_willing_to_pay"`
	MaxPrice        float64 `json:"max_willing_to_pay"`
	UrgencyFactor   float64 `json:"urgency_factor"`
}

// ActiveOn reports whether the shopper participates on the given day.
func (r *Record) ActiveOn(day int) bool {
	return r.WindowStart <= day && day <= r.WindowEnd && r.DemandRemaining > 0
}

// WillingToPay computes the shopper's current integer price ceiling.
// Time progress through the window is raised to the urgency factor, so
// urgent shoppers (factor > 1) hold out near base price and then climb
// steeply. A zero-length window means maximum urgency immediately.
func (r *Record) WillingToPay(day int) int {
	windowLen := r.WindowEnd - r.WindowStart
	progress := 1.0
	if windowLen > 0 {
		progress = float64(day-r.WindowStart) / float64(windowLen)
	}
	price := r.BasePrice + (r.MaxPrice-r.BasePrice)*math.Pow(progress, r.UrgencyFactor)
	return int(math.Round(price))
}

// DemandUnit is one unit of a shopper's remaining demand, rebuilt each
// day. UnitID is unique across the day's pool so matching never collides
// on keys; ShopperID points back to the owning Record.
type DemandUnit struct {
	UnitID       string `json:"shopper_unit_id"`
	ShopperID    string `json:"shopper_id"`
	WillingToPay int    `json:"willing_to_pay"`
}

// GeneratePopulation draws the shopper database from the configured
// segment parameters using the supplied rng.
func GeneratePopulation(cfg config.Simulation, rng *rand.Rand) []*Record {
	numLong := int(float64(cfg.TotalShoppers) * cfg.LongTermRatio)
	numShort := cfg.TotalShoppers - numLong

	shoppers := make([]*Record, 0, cfg.TotalShoppers)
	for i := 0; i < numLong; i++ {
		shoppers = append(shoppers, draw(fmt.Sprintf("LT_%04d", i+1), LongTerm, cfg.LongTerm, cfg.NumDays, rng))
	}
	for i := 0; i < numShort; i++ {
		shoppers = append(shoppers, draw(fmt.Sprintf("ST_%04d", i+1), ShortTerm, cfg.ShortTerm, cfg.NumDays, rng))
	}
	return shoppers
}

func draw(id string, typ Type, p config.ShopperParams, numDays int, rng *rand.Rand) *Record {
	demand := randRange(rng, p.DemandMin, p.DemandMax)

	// Cap windows so they fit inside the run.
	maxWindow := p.WindowMax
	if maxWindow > numDays-1 {
		maxWindow = numDays - 1
	}
	minWindow := p.WindowMin
	if minWindow > maxWindow {
		minWindow = maxWindow
	}
	windowLen := randRange(rng, minWindow, maxWindow)

	maxStart := numDays - windowLen
	if maxStart < 1 {
		maxStart = 1
	}
	start := randRange(rng, 1, maxStart)

	return &Record{
		ID:              id,
		Type:            typ,
		TotalDemand:     demand,
		DemandRemaining: demand,
		WindowStart:     start,
		WindowEnd:       start + windowLen,
		BasePrice:       randFloat(rng, p.BasePriceMin, p.BasePriceMax),
		MaxPrice:        randFloat(rng, p.MaxPriceMin, p.MaxPriceMax),
		UrgencyFactor:   randFloat(rng, p.UrgencyMin, p.UrgencyMax),
	}
}

func randRange(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}

func randFloat(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// BuildDemandPool expands every active shopper into one DemandUnit per
// remaining unit, each carrying today's WTP (computed once per shopper).
// The pool is shuffled and then stably sorted descending by WTP, so the
// shuffle is the tie-break between equal-WTP units and the order is
// reproducible for a fixed seed.
func BuildDemandPool(db []*Record, day int, rng *rand.Rand) []DemandUnit {
	var pool []DemandUnit
	for _, r := range db {
		if !r.ActiveOn(day) {
			continue
		}
		wtp := r.WillingToPay(day)
		for i := 0; i < r.DemandRemaining; i++ {
			pool = append(pool, DemandUnit{
				UnitID:       fmt.Sprintf("%s_unit%d", r.ID, i),
				ShopperID:    r.ID,
				WillingToPay: wtp,
			})
		}
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].WillingToPay > pool[j].WillingToPay })
	return pool
}
