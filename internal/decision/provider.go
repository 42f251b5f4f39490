// Package decision defines the provider boundary: the engine asks a
// Provider what an agent does, and enforces protocol legality itself.
// Implementations range from the deterministic rule-based provider used
// in tests to LLM-backed agents; the engine is agnostic.
package decision

import (
	"context"
	"fmt"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/ledger"
	"github.com/talgya/commodity-market/internal/negotiation"
)

// NegotiationContext is everything an agent sees when producing its next
// negotiation message. What goes in here is shaped by the information
// regime; the protocol mechanics never depend on it.
type NegotiationContext struct {
	Day     int
	NumDays int

	Self         agent.ID
	Counterparty agent.ID
	Session      *negotiation.Session
	Round        int
	MaxRounds    int

	Inventory   int
	Cash        float64
	CostPerUnit int
	Metrics     ledger.Metrics
	RecentSales []ledger.SaleRecord
	Scratchpad  string

	// ShortfallNotice is set when the counterparty's last request
	// exceeds this seller's inventory, so it may counter with a
	// reduced quantity. The protocol itself does not clamp.
	ShortfallNotice string

	// PeerNotes carries the latest note each other wholesaler chose
	// to share, keyed by author. Nil when communication is disabled
	// or the agent is a seller.
	PeerNotes map[agent.ID]string

	NegotiationDays []int
}

// MarketContext is the daily pricing view handed to an agent.
type MarketContext struct {
	Day     int
	NumDays int

	Self        agent.ID
	Inventory   int
	Cash        float64
	CostPerUnit int
	Metrics     ledger.Metrics
	RecentSales []ledger.SaleRecord
	Scratchpad  string

	// CompetitorPrices holds the previous day's listed prices when
	// price transparency is enabled; nil otherwise.
	CompetitorPrices map[agent.ID]int

	// PeerNotes carries the latest note each other wholesaler chose
	// to share, keyed by author. Nil when communication is disabled
	// or the agent is a seller.
	PeerNotes map[agent.ID]string
}

// NegotiationDecision is a provider's next negotiation message.
type NegotiationDecision struct {
	Price            int
	Quantity         int
	Action           negotiation.Action
	Rationale        string
	ScratchpadUpdate string

	// PeerNote is a message to the other wholesalers. It is delivered
	// only when the author is a wholesaler and communication is
	// enabled; otherwise it is discarded.
	PeerNote string
}

// MarketDecision is a provider's daily (price, quantity) offer.
type MarketDecision struct {
	Price            int
	Quantity         int
	Reasoning        string
	ScratchpadUpdate string

	// PeerNote as on NegotiationDecision.
	PeerNote string
}

// Provider produces decisions for agents. Calls are synchronous; the
// engine serializes all state mutation after a result is received.
type Provider interface {
	ProposeNegotiationOffer(ctx context.Context, nc NegotiationContext) (NegotiationDecision, error)
	ProposeMarketOffer(ctx context.Context, mc MarketContext) (MarketDecision, error)
}

// ProviderError is the typed failure surfaced when a provider times out
// or returns malformed output. The day's pipeline halts rather than
// guessing a default decision.
type ProviderError struct {
	Day   int
	Agent agent.ID
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("day %d: agent %s: decision provider: %v", e.Day, e.Agent, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
