package ledger

// Metrics is the per-agent business dashboard derived from a ledger.
// It is fed to decision providers as economic context; nothing in the
// clearing or negotiation mechanics depends on it.
type Metrics struct {
	InitialInvestment       float64 `json:"initial_investment"`
	Revenue                 float64 `json:"revenue"`
	GrossProfit             float64 `json:"gross_profit"`
	NetPosition             float64 `json:"net_position"`
	CostRecoveryRate        float64 `json:"cost_recovery_rate"`
	ROI                     float64 `json:"roi"`
	InventoryTurnover       float64 `json:"inventory_turnover"`
	UnitsSold               int     `json:"units_sold"`
	InventoryRemaining      int     `json:"inventory_remaining"`
	BookValue               float64 `json:"book_value"`
	AccumulatedDepreciation float64 `json:"accumulated_depreciation"`
	DailyDepreciation       float64 `json:"daily_depreciation"`
	DaysToBreakeven         float64 `json:"days_to_breakeven"`
}

// impossibleBreakeven signals that breakeven cannot be reached at the
// current revenue rate.
const impossibleBreakeven = 999

// ComputeMetrics derives the dashboard for one agent partway through a run.
func (l *Ledger) ComputeMetrics(numDays, currentDay int) Metrics {
	m := Metrics{
		InitialInvestment:       l.InitialInventoryValue,
		Revenue:                 l.TotalRevenue,
		NetPosition:             l.TotalRevenue - l.TotalCostIncurred,
		UnitsSold:               l.UnitsSold(),
		InventoryRemaining:      l.Inventory,
		BookValue:               l.BookValueRemaining,
		AccumulatedDepreciation: l.AccumulatedDepreciation,
	}

	if m.UnitsSold > 0 {
		cogs := float64(m.UnitsSold * l.CostPerUnit)
		m.GrossProfit = l.TotalRevenue - cogs
	}
	if l.InitialInventoryValue > 0 {
		m.CostRecoveryRate = l.TotalRevenue / l.InitialInventoryValue
		m.ROI = m.NetPosition / l.InitialInventoryValue
	}
	if l.InitialInventory > 0 {
		m.InventoryTurnover = float64(m.UnitsSold) / float64(l.InitialInventory)
	}
	if numDays > 0 {
		m.DailyDepreciation = l.InitialInventoryValue / float64(numDays)
	}

	m.DaysToBreakeven = impossibleBreakeven
	if currentDay > 0 {
		dailyRate := l.TotalRevenue / float64(currentDay)
		if dailyRate > 0 {
			m.DaysToBreakeven = (l.InitialInventoryValue - l.TotalRevenue) / dailyRate
		}
	}
	return m
}
