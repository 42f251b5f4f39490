// Package market implements the daily market phases: offer collection
// with transport-cost charging, and the two-phase clearing engine that
// matches shopper demand units against seller supply units.
package market

import (
	"log/slog"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/ledger"
)

// Offer is one agent's daily (price, quantity) market declaration.
type Offer struct {
	Agent    agent.ID `json:"agent_name"`
	Price    int      `json:"price"`
	Quantity int      `json:"quantity"`
}

// PrepareOffers finalizes the day's offers before clearing: quantities
// are clamped to current inventory, and sellers pay transport on every
// unit they bring to market whether or not it sells. A seller who cannot
// afford the full load brings what it can pay for; a seller already in
// negative cash sits the day out entirely. Wholesalers are exempt from
// transport.
func PrepareOffers(day int, raw []Offer, ledgers map[agent.ID]*ledger.Ledger, cfg config.Simulation) []Offer {
	prepared := make([]Offer, 0, len(raw))
	for _, o := range raw {
		led := ledgers[o.Agent]
		if o.Quantity < 0 {
			o.Quantity = 0
		}
		if o.Quantity > led.Inventory {
			o.Quantity = led.Inventory
		}

		if cfg.TransportCostEnabled && o.Agent.IsSeller() && o.Quantity > 0 {
			rate := cfg.TransportCostPerUnit
			switch {
			case led.Cash < 0:
				slog.Warn("seller excluded from market: negative cash",
					"day", day, "agent", o.Agent, "cash", led.Cash)
				o.Quantity = 0
			case rate > 0:
				cost := float64(rate * o.Quantity)
				if cost > led.Cash {
					affordable := int(led.Cash) / rate
					slog.Warn("transport cost reduced market quantity",
						"day", day, "agent", o.Agent,
						"declared", o.Quantity, "affordable", affordable)
					o.Quantity = affordable
					cost = float64(rate * o.Quantity)
				}
				if o.Quantity > 0 {
					led.ChargeTransport(cost)
				}
			}
		}

		prepared = append(prepared, o)
	}
	return prepared
}
