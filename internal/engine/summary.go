package engine

import (
	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/ledger"
)

// AgentPerformance is one agent's final scorecard.
type AgentPerformance struct {
	Agent          agent.ID       `json:"agent"`
	FinalCash      float64        `json:"final_cash"`
	FinalInventory int            `json:"final_inventory"`
	UnitsSold      int            `json:"units_sold"`
	Metrics        ledger.Metrics `json:"metrics"`
	Scratchpad     string         `json:"scratchpad,omitempty"`
}

// Summary condenses a finished run into the headline numbers.
type Summary struct {
	Name    string `json:"name"`
	NumDays int    `json:"num_days"`
	Seed    int64  `json:"seed"`

	WholesaleTrades    int     `json:"wholesale_trades"`
	WholesaleVolume    int     `json:"wholesale_volume"`
	AvgWholesalePrice  float64 `json:"avg_wholesale_price"`
	RetailVolume       int     `json:"retail_volume"`
	AvgRetailPrice     float64 `json:"avg_retail_price"`
	TotalUnmetDemand   int     `json:"total_unmet_demand"`
	NegotiationNoDeal  int     `json:"negotiation_no_deals"`
	NegotiationAborted int     `json:"negotiation_aborted"`

	Agents []AgentPerformance `json:"agents"`
}

// Summarize builds the scorecard for the run so far. Average prices are
// volume-weighted; a phase with no volume reports a zero average.
func (s *Simulation) Summarize() Summary {
	sum := Summary{
		Name:    s.Config.Name,
		NumDays: s.Config.NumDays,
		Seed:    s.Config.Seed,
	}

	var wholesaleValue int
	for _, t := range s.WholesaleLog {
		switch t.Status {
		case TradeExecuted:
			sum.WholesaleTrades++
			sum.WholesaleVolume += t.Quantity
			wholesaleValue += t.TotalValue
		case TradeNoDeal:
			sum.NegotiationNoDeal++
		case TradeAborted:
			sum.NegotiationAborted++
		}
	}
	if sum.WholesaleVolume > 0 {
		sum.AvgWholesalePrice = float64(wholesaleValue) / float64(sum.WholesaleVolume)
	}

	var retailValue int
	for _, sale := range s.MarketLog {
		sum.RetailVolume += sale.Quantity
		retailValue += sale.Price * sale.Quantity
	}
	if sum.RetailVolume > 0 {
		sum.AvgRetailPrice = float64(retailValue) / float64(sum.RetailVolume)
	}

	sum.TotalUnmetDemand = len(s.UnmetLog)

	for _, id := range s.Agents() {
		led := s.Ledgers[id]
		sum.Agents = append(sum.Agents, AgentPerformance{
			Agent:          id,
			FinalCash:      led.Cash,
			FinalInventory: led.Inventory,
			UnitsSold:      led.UnitsSold(),
			Metrics:        led.ComputeMetrics(s.Config.NumDays, s.Day),
			Scratchpad:     s.scratchpads[id],
		})
	}
	return sum
}
