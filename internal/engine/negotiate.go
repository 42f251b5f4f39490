package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/ledger"
	"github.com/talgya/commodity-market/internal/negotiation"
)

// Wholesale trade outcomes recorded in the trade log.
const (
	TradeExecuted = "executed"
	TradeNoDeal   = "no_deal"
	TradeAborted  = "aborted"
)

// runNegotiations drives every (seller, wholesaler) pair in seller-major
// order. Sessions run sequentially and each session's trade settles
// before the next session starts, so a later pair sees the cash and
// inventory the earlier pair left behind.
func (s *Simulation) runNegotiations(ctx context.Context, day int) error {
	for _, seller := range s.sellers() {
		for _, buyer := range s.wholesalers() {
			if err := s.runSession(ctx, day, seller, buyer); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulation) runSession(ctx context.Context, day int, seller, buyer agent.ID) error {
	sellerLed := s.Ledgers[seller]
	buyerLed := s.Ledgers[buyer]

	// A seller with nothing to sell declines up front; neither side's
	// provider is consulted.
	if sellerLed.Inventory == 0 {
		slog.Info("negotiation skipped: seller has no inventory",
			"day", day, "seller", seller, "buyer", buyer)
		s.event(day, "negotiation", fmt.Sprintf("%s declined to negotiate with %s: no inventory", seller, buyer))
		s.WholesaleLog = append(s.WholesaleLog, ledger.Trade{
			Day: day, Buyer: buyer, Seller: seller, Status: TradeNoDeal,
		})
		return nil
	}

	sess := negotiation.NewSession(seller, buyer, s.Config.MaxNegotiationRounds)
	s.Sessions = append(s.Sessions, sess)

	for {
		speaker, open := sess.NextSpeaker()
		if !open {
			break
		}

		dec, err := s.provider.ProposeNegotiationOffer(ctx, s.negotiationContext(day, speaker, sess))
		if err != nil {
			return &decision.ProviderError{Day: day, Agent: speaker, Err: err}
		}
		s.applyScratchpad(speaker, dec.ScratchpadUpdate)
		s.applyPeerNote(speaker, dec.PeerNote)

		offer := negotiation.Offer{
			Agent:     speaker,
			Price:     dec.Price,
			Quantity:  dec.Quantity,
			Rationale: dec.Rationale,
			Action:    dec.Action,
		}
		if err := sess.Append(offer); err != nil {
			// A malformed move forfeits the session for its author.
			slog.Warn("negotiation protocol violation, treated as reject",
				"day", day, "agent", speaker, "err", err)
			_ = sess.Append(negotiation.Offer{
				Agent:     speaker,
				Action:    negotiation.ActionReject,
				Rationale: "invalid move",
			})
		}
	}

	return s.settleSession(day, sess, sellerLed, buyerLed)
}

// settleSession commits a terminal session: an accepted trade moves
// goods and cash atomically, an accept the seller can no longer cover
// is aborted whole, and everything else is a recorded no-deal.
func (s *Simulation) settleSession(day int, sess *negotiation.Session, sellerLed, buyerLed *ledger.Ledger) error {
	trade := ledger.Trade{Day: day, Buyer: sess.Buyer, Seller: sess.Seller}

	price, qty, accepted := sess.AcceptedTerms()
	if !accepted {
		trade.Status = TradeNoDeal
		s.WholesaleLog = append(s.WholesaleLog, trade)
		s.event(day, "negotiation", fmt.Sprintf("%s and %s ended without a deal after %d rounds",
			sess.Seller, sess.Buyer, sess.Round()))
		return nil
	}

	if err := ledger.ExecuteTrade(sellerLed, buyerLed, price, qty); err != nil {
		slog.Warn("accepted trade aborted",
			"day", day, "seller", sess.Seller, "buyer", sess.Buyer,
			"price", price, "quantity", qty, "inventory", sellerLed.Inventory, "err", err)
		trade.Status = TradeAborted
		s.WholesaleLog = append(s.WholesaleLog, trade)
		s.event(day, "negotiation", fmt.Sprintf("trade between %s and %s aborted: quantity %d exceeds inventory",
			sess.Seller, sess.Buyer, qty))
		return nil
	}

	trade.Price = price
	trade.Quantity = qty
	trade.TotalValue = price * qty
	trade.Status = TradeExecuted
	s.WholesaleLog = append(s.WholesaleLog, trade)
	s.event(day, "trade", fmt.Sprintf("%s sold %d units to %s at %d each",
		sess.Seller, qty, sess.Buyer, price))
	slog.Info("wholesale trade executed",
		"day", day, "seller", sess.Seller, "buyer", sess.Buyer,
		"price", price, "quantity", qty)
	return nil
}

func (s *Simulation) negotiationContext(day int, speaker agent.ID, sess *negotiation.Session) decision.NegotiationContext {
	led := s.Ledgers[speaker]
	counterparty := sess.Buyer
	if speaker == sess.Buyer {
		counterparty = sess.Seller
	}

	nc := decision.NegotiationContext{
		Day:             day,
		NumDays:         s.Config.NumDays,
		Self:            speaker,
		Counterparty:    counterparty,
		Session:         sess,
		Round:           sess.Round(),
		MaxRounds:       sess.MaxRounds,
		Inventory:       led.Inventory,
		Cash:            led.Cash,
		CostPerUnit:     led.CostPerUnit,
		Metrics:         led.ComputeMetrics(s.Config.NumDays, day-1),
		RecentSales:     recentSales(led),
		Scratchpad:      s.scratchpads[speaker],
		PeerNotes:       s.peerNotesFor(speaker),
		NegotiationDays: s.Config.NegotiationDays,
	}

	if speaker == sess.Seller {
		if last, ok := sess.LastOffer(); ok && last.Action == negotiation.ActionOffer && last.Quantity > led.Inventory {
			nc.ShortfallNotice = fmt.Sprintf("requested quantity %d exceeds your inventory of %d",
				last.Quantity, led.Inventory)
		}
	}
	return nc
}

func recentSales(led *ledger.Ledger) []ledger.SaleRecord {
	const window = 5
	log := led.PrivateSalesLog
	if len(log) <= window {
		return log
	}
	return log[len(log)-window:]
}
