package market

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/ledger"
	"github.com/talgya/commodity-market/internal/shopper"
)

// MarketBuyer is the aggregate counterparty name for B2C sales.
const MarketBuyer = "Market"

// SupplyUnit is one unit of an agent's daily offer.
type SupplyUnit struct {
	UnitID string   `json:"seller_unit_id"`
	Agent  agent.ID `json:"agent_name"`
	Price  int      `json:"price"`
}

// Sale is one agent's aggregated B2C sale for a day.
type Sale struct {
	Day      int      `json:"day"`
	Buyer    string   `json:"buyer"`
	Seller   agent.ID `json:"seller"`
	Price    int      `json:"price"`
	Quantity int      `json:"quantity"`
}

// UnmetDemand records a shopper unit that found no affordable supply.
type UnmetDemand struct {
	Day           int    `json:"day"`
	ShopperUnitID string `json:"shopper_unit_id"`
	WillingToPay  int    `json:"willing_to_pay"`
}

// Result is the outcome of one day's market clearing.
type Result struct {
	Day              int
	QuantitiesSold   map[agent.ID]int
	Sales            []Sale
	ShopperPurchases map[string]int // originating shopper ID → units bought
	Unmet            []UnmetDemand
	TotalMatched     int
}

// assignment pairs one demand unit with its currently held supply unit.
type assignment struct {
	demand    shopper.DemandUnit
	supplyIdx int
}

// Clear runs the two-phase matching between the day's demand pool
// (already WTP-descending) and the prepared offers.
//
// Phase 1 maximizes matched volume: supply is scanned most-expensive
// first and each shopper takes the first unit it can afford. Phase 2
// then walks the matched shoppers from priciest assignment down and
// re-seats each onto the cheapest still-unsold unit when that is both
// affordable and strictly cheaper, freeing the pricier unit back into
// the pool, until no improving move remains. The descending Phase 1
// scan looks backwards on its own but is what lets Phase 2 drain cheap
// inventory; keep the two phases together.
func Clear(day int, demand []shopper.DemandUnit, offers []Offer) Result {
	supply := buildSupply(offers)

	// Phase 1: priority matching.
	available := make([]int, len(supply))
	for i := range supply {
		available[i] = i
	}

	var assignments []assignment
	var unmet []UnmetDemand
	for _, unit := range demand {
		matched := false
		for pos, idx := range available {
			if unit.WillingToPay >= supply[idx].Price {
				assignments = append(assignments, assignment{demand: unit, supplyIdx: idx})
				available = append(available[:pos], available[pos+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			unmet = append(unmet, UnmetDemand{
				Day:           day,
				ShopperUnitID: unit.UnitID,
				WillingToPay:  unit.WillingToPay,
			})
		}
	}

	// Phase 2: surplus optimization. Shoppers unmet in Phase 1 are
	// never reconsidered and never block the re-seating.
	if len(assignments) > 0 && len(available) > 0 {
		sortByPrice := func(idxs []int) {
			sort.SliceStable(idxs, func(i, j int) bool {
				return supply[idxs[i]].Price < supply[idxs[j]].Price
			})
		}
		sortByPrice(available)

		order := make([]*assignment, len(assignments))
		for i := range assignments {
			order[i] = &assignments[i]
		}
		sort.SliceStable(order, func(i, j int) bool {
			return supply[order[i].supplyIdx].Price > supply[order[j].supplyIdx].Price
		})

		for _, a := range order {
			if len(available) == 0 {
				break
			}
			cheapest := available[0]
			current := supply[a.supplyIdx]
			if a.demand.WillingToPay >= supply[cheapest].Price && supply[cheapest].Price < current.Price {
				old := a.supplyIdx
				a.supplyIdx = cheapest
				available = append(available[1:], old)
				sortByPrice(available)
			}
		}
	}

	return aggregate(day, offers, supply, assignments, unmet)
}

func buildSupply(offers []Offer) []SupplyUnit {
	var supply []SupplyUnit
	for _, o := range offers {
		for i := 0; i < o.Quantity; i++ {
			supply = append(supply, SupplyUnit{
				UnitID: fmt.Sprintf("%s_%d", o.Agent, i),
				Agent:  o.Agent,
				Price:  o.Price,
			})
		}
	}
	// Most expensive first; stable so equal-priced units keep offer order.
	sort.SliceStable(supply, func(i, j int) bool { return supply[i].Price > supply[j].Price })
	return supply
}

func aggregate(day int, offers []Offer, supply []SupplyUnit, assignments []assignment, unmet []UnmetDemand) Result {
	res := Result{
		Day:              day,
		QuantitiesSold:   make(map[agent.ID]int, len(offers)),
		ShopperPurchases: make(map[string]int),
		Unmet:            unmet,
	}
	for _, o := range offers {
		res.QuantitiesSold[o.Agent] = 0
	}

	// Shoppers pay the unit's listed price, not their WTP.
	for _, a := range assignments {
		res.QuantitiesSold[supply[a.supplyIdx].Agent]++
		res.ShopperPurchases[a.demand.ShopperID]++
		res.TotalMatched++
	}

	for _, o := range offers {
		if qty := res.QuantitiesSold[o.Agent]; qty > 0 {
			res.Sales = append(res.Sales, Sale{
				Day:      day,
				Buyer:    MarketBuyer,
				Seller:   o.Agent,
				Price:    o.Price,
				Quantity: qty,
			})
		}
	}
	return res
}

// ApplyResult commits a clearing result: seller ledgers gain cash and
// lose inventory, shopper demand is decremented. Inventory decrements
// are capped defensively at current stock; an offer implying more is a
// capacity warning, not an error.
func ApplyResult(res Result, ledgers map[agent.ID]*ledger.Ledger, db []*shopper.Record) {
	for _, sale := range res.Sales {
		led := ledgers[sale.Seller]
		qty := sale.Quantity
		if qty > led.Inventory {
			slog.Warn("market sale capped to available inventory",
				"day", res.Day, "agent", sale.Seller,
				"sold", qty, "inventory", led.Inventory)
			qty = led.Inventory
		}
		led.RecordMarketSale(sale.Day, sale.Price, qty)
	}

	for _, r := range db {
		if bought, ok := res.ShopperPurchases[r.ID]; ok {
			r.DemandRemaining -= bought
			if r.DemandRemaining < 0 {
				r.DemandRemaining = 0
			}
		}
	}
}
