package decision

import (
	"context"
	"fmt"

	"github.com/talgya/commodity-market/internal/negotiation"
)

// RuleBased is a deterministic heuristic provider. It converges quickly
// in negotiation (buyer escalates, seller concedes toward a floor above
// cost) and prices the market off remaining sell-off pressure. Two runs
// with the same seed and config produce identical transcripts.
type RuleBased struct{}

const (
	// Shopper willingness to pay spans roughly 80-150; a wholesaler
	// paying above this in the B2B round cannot resell profitably.
	buyerOpeningBid = 70
	buyerBidStep    = 2
	buyerCeiling    = 85

	sellerAskMarkup  = 20
	sellerFloorOver  = 5
	sellerAskConcede = 2

	defaultDealQuantity = 200
)

func (RuleBased) ProposeNegotiationOffer(_ context.Context, nc NegotiationContext) (NegotiationDecision, error) {
	if nc.Self.IsSeller() {
		return sellerNegotiate(nc), nil
	}
	return buyerNegotiate(nc), nil
}

func buyerNegotiate(nc NegotiationContext) NegotiationDecision {
	last, hasLast := nc.Session.LastOffer()
	bid := buyerOpeningBid + buyerBidStep*(nc.Round-1)
	if bid > buyerCeiling {
		bid = buyerCeiling
	}

	if hasLast && last.Action == negotiation.ActionOffer {
		if last.Price <= buyerCeiling {
			return NegotiationDecision{
				Action:    negotiation.ActionAccept,
				Rationale: fmt.Sprintf("counter of %d is within my resale margin", last.Price),
			}
		}
		if nc.Round >= nc.MaxRounds {
			return NegotiationDecision{
				Action:    negotiation.ActionReject,
				Rationale: "no agreement within margin before the round limit",
			}
		}
	}

	qty := defaultDealQuantity
	if hasLast && last.Quantity > 0 {
		qty = last.Quantity
	}
	if nc.Cash > 0 && float64(bid*qty) > nc.Cash {
		qty = int(nc.Cash) / bid
	}
	return NegotiationDecision{
		Price:     bid,
		Quantity:  qty,
		Action:    negotiation.ActionOffer,
		Rationale: fmt.Sprintf("bidding %d for %d units to stock ahead of retail demand", bid, qty),
	}
}

func sellerNegotiate(nc NegotiationContext) NegotiationDecision {
	floor := nc.CostPerUnit + sellerFloorOver
	last, hasLast := nc.Session.LastOffer()
	if !hasLast {
		// Protocol has the buyer open; nothing sensible to do here.
		return NegotiationDecision{Action: negotiation.ActionReject, Rationale: "no standing offer"}
	}

	if last.Price >= floor && last.Quantity <= nc.Inventory {
		return NegotiationDecision{
			Action:    negotiation.ActionAccept,
			Rationale: fmt.Sprintf("offer of %d clears my floor of %d", last.Price, floor),
		}
	}
	if nc.Round >= nc.MaxRounds && last.Price < floor {
		return NegotiationDecision{
			Action:    negotiation.ActionReject,
			Rationale: fmt.Sprintf("buyer will not clear my floor of %d", floor),
		}
	}

	ask := nc.CostPerUnit + sellerAskMarkup - sellerAskConcede*(nc.Round-1)
	if ask < floor {
		ask = floor
	}
	qty := last.Quantity
	if qty > nc.Inventory {
		qty = nc.Inventory
	}
	return NegotiationDecision{
		Price:     ask,
		Quantity:  qty,
		Action:    negotiation.ActionOffer,
		Rationale: fmt.Sprintf("countering at %d for %d units", ask, qty),
	}
}

func (RuleBased) ProposeMarketOffer(_ context.Context, mc MarketContext) (MarketDecision, error) {
	if mc.Inventory == 0 {
		return MarketDecision{Reasoning: "no inventory to list"}, nil
	}

	daysLeft := mc.NumDays - mc.Day + 1
	if daysLeft < 1 {
		daysLeft = 1
	}

	// Margin shrinks as the horizon closes: unsold units are a total
	// loss after depreciation, so late-game pricing chases volume.
	progress := float64(mc.Day) / float64(mc.NumDays)
	var price int
	if mc.Self.IsSeller() {
		price = mc.CostPerUnit + 40 - int(progress*30)
		if min := mc.CostPerUnit + 5; price < min {
			price = min
		}
	} else {
		price = 95 - int(progress*10)
	}
	if mc.CompetitorPrices != nil {
		for _, p := range mc.CompetitorPrices {
			if p > 0 && p-1 < price {
				price = p - 1
			}
		}
		if mc.Self.IsSeller() && price < mc.CostPerUnit+5 {
			price = mc.CostPerUnit + 5
		}
		if price < 1 {
			price = 1
		}
	}

	qty := mc.Inventory * 3 / (daysLeft * 2)
	if qty < 1 {
		qty = 1
	}
	if qty > mc.Inventory {
		qty = mc.Inventory
	}
	return MarketDecision{
		Price:     price,
		Quantity:  qty,
		Reasoning: fmt.Sprintf("listing %d units at %d with %d days remaining", qty, price, daysLeft),
	}, nil
}
