package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/market"
	"github.com/talgya/commodity-market/internal/shopper"
)

// runMarket executes the day's retail phase: every agent declares an
// offer, offers are finalized (inventory clamp, transport charges), the
// day's demand pool clears against them, and the result is committed.
func (s *Simulation) runMarket(ctx context.Context, day int) error {
	raw := make([]market.Offer, 0, len(s.Ledgers))
	for _, id := range s.Agents() {
		dec, err := s.provider.ProposeMarketOffer(ctx, s.marketContext(day, id))
		if err != nil {
			return &decision.ProviderError{Day: day, Agent: id, Err: err}
		}
		s.applyScratchpad(id, dec.ScratchpadUpdate)
		s.applyPeerNote(id, dec.PeerNote)

		if dec.Price < 0 || dec.Quantity < 0 {
			slog.Warn("invalid market offer, listing nothing",
				"day", day, "agent", id, "price", dec.Price, "quantity", dec.Quantity)
			dec.Price, dec.Quantity = 0, 0
		}
		raw = append(raw, market.Offer{Agent: id, Price: dec.Price, Quantity: dec.Quantity})
	}

	offers := market.PrepareOffers(day, raw, s.Ledgers, s.Config)

	demand := shopper.BuildDemandPool(s.Shoppers, day, s.rng)
	res := market.Clear(day, demand, offers)
	market.ApplyResult(res, s.Ledgers, s.Shoppers)

	s.MarketLog = append(s.MarketLog, res.Sales...)
	s.UnmetLog = append(s.UnmetLog, res.Unmet...)

	// Remember today's listed prices for tomorrow's transparency view.
	s.lastOffers = make(map[agent.ID]int, len(offers))
	for _, o := range offers {
		if o.Quantity > 0 {
			s.lastOffers[o.Agent] = o.Price
		}
	}

	s.event(day, "market", fmt.Sprintf("market cleared: %d of %d demand units matched", res.TotalMatched, len(demand)))
	slog.Info("market cleared",
		"day", day, "demand_units", len(demand),
		"matched", res.TotalMatched, "unmet", len(res.Unmet))
	return nil
}

func (s *Simulation) marketContext(day int, id agent.ID) decision.MarketContext {
	led := s.Ledgers[id]
	mc := decision.MarketContext{
		Day:         day,
		NumDays:     s.Config.NumDays,
		Self:        id,
		Inventory:   led.Inventory,
		Cash:        led.Cash,
		CostPerUnit: led.CostPerUnit,
		Metrics:     led.ComputeMetrics(s.Config.NumDays, day-1),
		RecentSales: recentSales(led),
		Scratchpad:  s.scratchpads[id],
		PeerNotes:   s.peerNotesFor(id),
	}

	if s.Config.EnablePriceTransparency && len(s.lastOffers) > 0 {
		mc.CompetitorPrices = make(map[agent.ID]int, len(s.lastOffers))
		for other, price := range s.lastOffers {
			if other != id {
				mc.CompetitorPrices[other] = price
			}
		}
	}
	return mc
}
