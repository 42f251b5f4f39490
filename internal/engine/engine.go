// Package engine owns the simulation loop: seeding, the daily pipeline
// of negotiation, market clearing and depreciation, and the run event
// log. All randomness flows from the single seeded source created here,
// so a (seed, config) pair fully determines a run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/ledger"
	"github.com/talgya/commodity-market/internal/market"
	"github.com/talgya/commodity-market/internal/negotiation"
	"github.com/talgya/commodity-market/internal/shopper"
)

// Event is one entry in the run's narrative log.
type Event struct {
	Day         int    `json:"day"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Simulation holds the complete state of one run.
type Simulation struct {
	Config config.Simulation
	Day    int

	Ledgers  map[agent.ID]*ledger.Ledger
	Shoppers []*shopper.Record

	Sessions     []*negotiation.Session
	WholesaleLog []ledger.Trade
	MarketLog    []market.Sale
	UnmetLog     []market.UnmetDemand
	Events       []Event

	scratchpads map[agent.ID]string
	lastOffers  map[agent.ID]int    // previous day's listed prices
	peerNotes   map[agent.ID]string // latest wholesaler-to-wholesaler notes

	rng      *rand.Rand
	provider decision.Provider
}

// New validates the configuration, seeds the rng and draws the initial
// world: seller costs and inventories first, then the shopper
// population. Draw order is fixed; changing it changes every run.
func New(cfg config.Simulation, provider decision.Provider) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	s := &Simulation{
		Config:      cfg,
		Ledgers:     make(map[agent.ID]*ledger.Ledger, 4),
		scratchpads: make(map[agent.ID]string),
		lastOffers:  make(map[agent.ID]int),
		peerNotes:   make(map[agent.ID]string),
		rng:         rng,
		provider:    provider,
	}

	for i, p := range []config.SellerParams{cfg.Seller1, cfg.Seller2} {
		cost := randRange(rng, p.CostMin, p.CostMax)
		inv := randRange(rng, p.InventoryMin, p.InventoryMax)
		id := agent.ID{Role: agent.RoleSeller, Index: i + 1}
		s.Ledgers[id] = ledger.NewSeller(cost, inv, p.StartingCash)
	}
	s.Ledgers[agent.Wholesaler] = ledger.NewWholesaler(cfg.WholesalerStartingCash)
	if cfg.SecondWholesaler {
		s.Ledgers[agent.Wholesaler2] = ledger.NewWholesaler(cfg.WholesalerStartingCash)
	}

	s.Shoppers = shopper.GeneratePopulation(cfg, rng)
	return s, nil
}

// Agents returns the roster in its fixed pipeline order.
func (s *Simulation) Agents() []agent.ID {
	roster := []agent.ID{agent.Seller1, agent.Seller2, agent.Wholesaler}
	if s.Config.SecondWholesaler {
		roster = append(roster, agent.Wholesaler2)
	}
	return roster
}

func (s *Simulation) sellers() []agent.ID {
	return []agent.ID{agent.Seller1, agent.Seller2}
}

func (s *Simulation) wholesalers() []agent.ID {
	ws := []agent.ID{agent.Wholesaler}
	if s.Config.SecondWholesaler {
		ws = append(ws, agent.Wholesaler2)
	}
	return ws
}

// Run executes every configured day in order. A provider failure aborts
// the run with a *decision.ProviderError; protocol violations by agents
// are absorbed day-locally and never abort.
func (s *Simulation) Run(ctx context.Context) error {
	slog.Info("simulation starting",
		"name", s.Config.Name, "days", s.Config.NumDays, "seed", s.Config.Seed,
		"shoppers", len(s.Shoppers), "agents", len(s.Ledgers))

	for day := 1; day <= s.Config.NumDays; day++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled on day %d: %w", day, err)
		}
		if err := s.runDay(ctx, day); err != nil {
			return err
		}
	}

	slog.Info("simulation finished", "name", s.Config.Name, "days", s.Config.NumDays)
	return nil
}

func (s *Simulation) runDay(ctx context.Context, day int) error {
	s.Day = day
	s.event(day, "day", fmt.Sprintf("day %d begins", day))

	if s.Config.IsNegotiationDay(day) {
		if err := s.runNegotiations(ctx, day); err != nil {
			return err
		}
	}

	if err := s.runMarket(ctx, day); err != nil {
		return err
	}

	for _, led := range s.Ledgers {
		led.Depreciate(s.Config.NumDays)
	}

	s.event(day, "day", fmt.Sprintf("day %d ends", day))
	return nil
}

func (s *Simulation) event(day int, category, description string) {
	s.Events = append(s.Events, Event{Day: day, Category: category, Description: description})
}

// applyScratchpad appends an agent's note to its private memory; notes
// accumulate across the whole run.
func (s *Simulation) applyScratchpad(id agent.ID, update string) {
	if update == "" {
		return
	}
	note := fmt.Sprintf("[day %d] %s", s.Day, update)
	if cur := s.scratchpads[id]; cur != "" {
		s.scratchpads[id] = cur + "\n" + note
	} else {
		s.scratchpads[id] = note
	}
}

// applyPeerNote records a wholesaler's message to its peers. Sellers
// never take part in the channel, and the whole channel is off unless
// communication is enabled.
func (s *Simulation) applyPeerNote(id agent.ID, note string) {
	if note == "" || !id.IsWholesaler() || !s.Config.EnableCommunication {
		return
	}
	s.peerNotes[id] = note
}

// peerNotesFor returns the other wholesalers' latest notes, or nil for
// sellers and when communication is disabled.
func (s *Simulation) peerNotesFor(id agent.ID) map[agent.ID]string {
	if !s.Config.EnableCommunication || !id.IsWholesaler() {
		return nil
	}
	notes := make(map[agent.ID]string, len(s.peerNotes))
	for author, note := range s.peerNotes {
		if author != id {
			notes[author] = note
		}
	}
	return notes
}

func randRange(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}
