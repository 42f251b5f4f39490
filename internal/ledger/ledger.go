// Package ledger tracks each agent's financial and inventory state.
// All mutation goes through the methods here; the invariants (inventory
// never negative, symmetric cash movement on trades) live in this package.
package ledger

import (
	"errors"

	"github.com/talgya/commodity-market/internal/agent"
)

// ErrInsufficientInventory marks a trade whose quantity exceeds the
// seller's current inventory. Such trades are aborted, never clamped.
var ErrInsufficientInventory = errors.New("trade quantity exceeds seller inventory")

// SaleRecord is one day's aggregated market sale in an agent's private log.
type SaleRecord struct {
	Day      int `json:"day"`
	Price    int `json:"price"`
	Quantity int `json:"qty"`
}

// Ledger is one agent's persistent financial record. Field names are the
// canonical serialization schema.
type Ledger struct {
	Inventory               int          `json:"inventory"`
	Cash                    float64      `json:"cash"`
	CostPerUnit             int          `json:"cost_per_unit"`
	TotalRevenue            float64      `json:"total_revenue"`
	TotalCostIncurred       float64      `json:"total_cost_incurred"`
	TotalTransportCosts     float64      `json:"total_transport_costs"`
	AccumulatedDepreciation float64      `json:"accumulated_depreciation"`
	BookValueRemaining      float64      `json:"book_value_remaining"`
	InitialInventory        int          `json:"initial_inventory"`
	InitialInventoryValue   float64      `json:"initial_inventory_value"`
	PrivateSalesLog         []SaleRecord `json:"private_sales_log"`
}

// NewSeller creates a seller ledger. The initial inventory is carried as
// an incurred cost and as the depreciating book value.
func NewSeller(costPerUnit, inventory int, startingCash float64) *Ledger {
	value := float64(inventory * costPerUnit)
	return &Ledger{
		Inventory:             inventory,
		Cash:                  startingCash,
		CostPerUnit:           costPerUnit,
		TotalCostIncurred:     value,
		InitialInventory:      inventory,
		InitialInventoryValue: value,
		BookValueRemaining:    value,
	}
}

// NewWholesaler creates a wholesaler ledger with working capital and no stock.
func NewWholesaler(startingCash float64) *Ledger {
	return &Ledger{Cash: startingCash}
}

// Trade is one executed wholesale (B2B) transaction, append-only.
type Trade struct {
	Day        int      `json:"day"`
	Buyer      agent.ID `json:"buyer"`
	Seller     agent.ID `json:"seller"`
	Price      int      `json:"price"`
	Quantity   int      `json:"quantity"`
	TotalValue int      `json:"total_value"`
	Status     string   `json:"status"`
}

// ExecuteTrade applies an accepted negotiation atomically to both
// ledgers: price×quantity moves from buyer to seller, quantity moves
// from seller to buyer. If the seller cannot cover the quantity the
// trade is aborted and both ledgers are left untouched.
func ExecuteTrade(seller, buyer *Ledger, price, quantity int) error {
	if quantity > seller.Inventory {
		return ErrInsufficientInventory
	}
	value := float64(price * quantity)

	seller.Inventory -= quantity
	seller.Cash += value
	seller.TotalRevenue += value

	buyer.Inventory += quantity
	buyer.Cash -= value
	buyer.TotalCostIncurred += value
	return nil
}

// RecordMarketSale applies one day's aggregated B2C sale: cash and
// revenue in, inventory out, and an entry in the private sales log.
// The quantity must already be capped to current inventory.
func (l *Ledger) RecordMarketSale(day, price, quantity int) {
	revenue := float64(price * quantity)
	l.Inventory -= quantity
	l.Cash += revenue
	l.TotalRevenue += revenue
	l.PrivateSalesLog = append(l.PrivateSalesLog, SaleRecord{Day: day, Price: price, Quantity: quantity})
}

// ChargeTransport deducts a transport cost from cash and tracks the total.
func (l *Ledger) ChargeTransport(cost float64) {
	l.Cash -= cost
	l.TotalTransportCosts += cost
}

// Depreciate applies one day of linear depreciation: the initial
// inventory value spread evenly over the simulation length, book value
// floored at zero.
func (l *Ledger) Depreciate(numDays int) {
	if l.InitialInventoryValue <= 0 || numDays <= 0 {
		return
	}
	daily := l.InitialInventoryValue / float64(numDays)
	l.AccumulatedDepreciation += daily
	l.BookValueRemaining = l.InitialInventoryValue - l.AccumulatedDepreciation
	if l.BookValueRemaining < 0 {
		l.BookValueRemaining = 0
	}
}

// UnitsSold returns how many units have left the ledger since the start.
func (l *Ledger) UnitsSold() int {
	return l.InitialInventory - l.Inventory
}
