package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/ledger"
)

// economicPriors renders the business dashboard every decision prompt
// carries. Without it models anchor on the negotiation transcript alone
// and ignore depreciation and the hard end-of-run expiry.
func economicPriors(day, numDays int, m ledger.Metrics) string {
	daysRemaining := numDays - day

	var b strings.Builder
	b.WriteString("=== BUSINESS PERFORMANCE DASHBOARD ===\n\n")

	b.WriteString("YOUR CURRENT FINANCIAL POSITION:\n")
	fmt.Fprintf(&b, "- Initial Investment: $%s\n", humanize.CommafWithDigits(m.InitialInvestment, 0))
	fmt.Fprintf(&b, "- Current Revenue: $%s\n", humanize.CommafWithDigits(m.Revenue, 0))
	fmt.Fprintf(&b, "- Net Position (P&L): $%s\n", humanize.CommafWithDigits(m.NetPosition, 0))
	fmt.Fprintf(&b, "- Gross Profit: $%s\n", humanize.CommafWithDigits(m.GrossProfit, 0))
	fmt.Fprintf(&b, "- ROI: %.1f%%\n", m.ROI*100)
	fmt.Fprintf(&b, "- Cost Recovery Rate: %.1f%%\n", m.CostRecoveryRate*100)
	fmt.Fprintf(&b, "- Inventory Turnover: %.1f%%\n\n", m.InventoryTurnover*100)

	b.WriteString("INVENTORY STATUS:\n")
	fmt.Fprintf(&b, "- Current Inventory: %d units\n", m.InventoryRemaining)
	fmt.Fprintf(&b, "- Units Sold So Far: %d units\n", m.UnitsSold)
	fmt.Fprintf(&b, "- Book Value (after depreciation): $%s\n", humanize.CommafWithDigits(m.BookValue, 0))
	fmt.Fprintf(&b, "- Accumulated Depreciation: $%s\n", humanize.CommafWithDigits(m.AccumulatedDepreciation, 0))
	fmt.Fprintf(&b, "- Daily Depreciation: $%.0f\n\n", m.DailyDepreciation)

	b.WriteString("TIME & URGENCY:\n")
	fmt.Fprintf(&b, "- Current Day: %d of %d\n", day, numDays)
	fmt.Fprintf(&b, "- Days Remaining: %d days\n", daysRemaining)
	fmt.Fprintf(&b, "- Est. Days to Breakeven: %.0f days (at current revenue rate)\n", m.DaysToBreakeven)
	fmt.Fprintf(&b, "- CRITICAL: all unsold inventory at day %d expires and becomes worthless\n\n", numDays)

	b.WriteString("MARKET FUNDAMENTALS:\n")
	b.WriteString("- Typical Market Price Range: $80-$110 per unit (shoppers' willingness to pay)\n")
	b.WriteString("- Average Market Price: ~$95 per unit\n")
	b.WriteString("- Sellers' Production Costs: $58-$72 per unit (varies by seller)\n")
	return b.String()
}

func negotiationSystemPrompt(nc decision.NegotiationContext) string {
	role := "the BUYER, negotiating to purchase inventory for later resale to shoppers"
	if nc.Self.IsSeller() {
		role = fmt.Sprintf("the SELLER, holding inventory that cost you $%d per unit", nc.CostPerUnit)
	}
	peerField := ""
	if nc.PeerNotes != nil {
		peerField = "\n- \"peer_note\": a short message shared with the other wholesalers, or \"\""
	}
	return fmt.Sprintf(`You are %s, an agent in a commodity market. In this negotiation you are %s.

Respond ONLY with a JSON object:
- "action": "offer", "accept", or "reject"
- "price": integer price per unit (for an offer)
- "quantity": integer units (for an offer)
- "justification": what you tell the counterparty about why your terms are fair
- "scratchpad_update": concise NEW notes for your private memory, or ""%s

"accept" binds the counterparty's last offer as-is. "reject" ends the negotiation immediately with no deal.`,
		nc.Self, role, peerField)
}

func negotiationUserPrompt(nc decision.NegotiationContext) string {
	var b strings.Builder
	b.WriteString(economicPriors(nc.Day, nc.NumDays, nc.Metrics))

	b.WriteString("\nNEGOTIATION CONSTRAINTS:\n")
	fmt.Fprintf(&b, "- Maximum rounds: %d; exceeding them ends the negotiation with NO DEAL\n", nc.MaxRounds)
	fmt.Fprintf(&b, "- Negotiation schedule (days): %s\n", joinInts(nc.NegotiationDays))
	fmt.Fprintf(&b, "- Remaining future negotiation days after today: %d\n\n", remainingNegotiations(nc.NegotiationDays, nc.Day))

	b.WriteString("--- YOUR PRIVATE DATA ---\n")
	fmt.Fprintf(&b, "Inventory: %d units\nCash: $%.0f\n", nc.Inventory, nc.Cash)
	if len(nc.RecentSales) > 0 {
		raw, _ := json.Marshal(nc.RecentSales)
		fmt.Fprintf(&b, "Recent market sales: %s\n", raw)
	}
	if nc.ShortfallNotice != "" {
		fmt.Fprintf(&b, "NOTE: %s\n", nc.ShortfallNotice)
	}

	writePeerNotes(&b, nc.PeerNotes)

	b.WriteString("\n--- YOUR SCRATCHPAD (private notes) ---\n")
	if nc.Scratchpad != "" {
		b.WriteString(nc.Scratchpad)
		b.WriteString("\n")
	} else {
		b.WriteString("(empty)\n")
	}

	b.WriteString("\n--- NEGOTIATION CONTEXT ---\n")
	fmt.Fprintf(&b, "Negotiating with: %s\n", nc.Counterparty)
	fmt.Fprintf(&b, "Round: %d of %d\n", nc.Round, nc.MaxRounds)
	history, _ := json.MarshalIndent(nc.Session.History, "", "  ")
	fmt.Fprintf(&b, "Previous offers in this negotiation: %s\n", history)

	b.WriteString("\nDecide your next move and respond with the JSON object only.")
	return b.String()
}

func marketSystemPrompt(mc decision.MarketContext) string {
	role := "a wholesaler reselling previously purchased inventory to shoppers"
	if mc.Self.IsSeller() {
		role = fmt.Sprintf("a seller whose inventory cost $%d per unit, paying transport per unit brought to market", mc.CostPerUnit)
	}
	peerField := ""
	if mc.PeerNotes != nil {
		peerField = "\n- \"peer_note\": a short message shared with the other wholesalers, or \"\""
	}
	return fmt.Sprintf(`You are %s, %s, setting today's public market offer.

Respond ONLY with a JSON object:
- "price": integer price per unit
- "quantity": integer units to bring to market today
- "reasoning": one sentence on your pricing strategy
- "scratchpad_update": concise NEW notes for your private memory, or ""%s

A quantity of 0 sits out the day.`, mc.Self, role, peerField)
}

func marketUserPrompt(mc decision.MarketContext) string {
	var b strings.Builder
	b.WriteString(economicPriors(mc.Day, mc.NumDays, mc.Metrics))

	daysRemaining := mc.NumDays - mc.Day
	if daysRemaining < 1 {
		daysRemaining = 1
	}
	b.WriteString("\nPRICING STRATEGY CONSIDERATIONS:\n")
	fmt.Fprintf(&b, "- Inventory to clear: %d units\n", mc.Inventory)
	fmt.Fprintf(&b, "- Required daily sales rate: %.1f units/day\n", float64(mc.Inventory)/float64(daysRemaining))
	b.WriteString("- Price too high: no sales, inventory depreciates, losses compound\n")
	b.WriteString("- Price too low: sales but poor margins, slower cost recovery\n")

	if len(mc.CompetitorPrices) > 0 {
		b.WriteString("\nCOMPETITOR PRICES (yesterday's listings):\n")
		for id, price := range mc.CompetitorPrices {
			fmt.Fprintf(&b, "- %s: $%d\n", id, price)
		}
	}

	if len(mc.RecentSales) > 0 {
		raw, _ := json.Marshal(mc.RecentSales)
		fmt.Fprintf(&b, "\nYour recent sales: %s\n", raw)
	}

	writePeerNotes(&b, mc.PeerNotes)

	b.WriteString("\n--- YOUR SCRATCHPAD (private notes) ---\n")
	if mc.Scratchpad != "" {
		b.WriteString(mc.Scratchpad)
		b.WriteString("\n")
	} else {
		b.WriteString("(empty)\n")
	}

	b.WriteString("\nSet today's offer and respond with the JSON object only.")
	return b.String()
}

// writePeerNotes renders the wholesaler communication channel. A nil
// map means the channel is closed for this agent and nothing is shown.
func writePeerNotes(b *strings.Builder, notes map[agent.ID]string) {
	if len(notes) == 0 {
		return
	}
	b.WriteString("\nMESSAGES FROM OTHER WHOLESALERS:\n")
	for author, note := range notes {
		fmt.Fprintf(b, "- %s: %s\n", author, note)
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ", ")
}

func remainingNegotiations(days []int, today int) int {
	n := 0
	for _, d := range days {
		if d > today {
			n++
		}
	}
	return n
}
