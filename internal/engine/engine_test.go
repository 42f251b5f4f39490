package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/negotiation"
)

// scripted is a test provider driven by plain functions, recording who
// was consulted.
type scripted struct {
	negotiate        func(decision.NegotiationContext) (decision.NegotiationDecision, error)
	market           func(decision.MarketContext) (decision.MarketDecision, error)
	negotiationCalls []agent.ID
}

func (s *scripted) ProposeNegotiationOffer(_ context.Context, nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
	s.negotiationCalls = append(s.negotiationCalls, nc.Self)
	if s.negotiate == nil {
		return decision.NegotiationDecision{Action: negotiation.ActionReject}, nil
	}
	return s.negotiate(nc)
}

func (s *scripted) ProposeMarketOffer(_ context.Context, mc decision.MarketContext) (decision.MarketDecision, error) {
	if s.market == nil {
		return decision.MarketDecision{}, nil
	}
	return s.market(mc)
}

func testConfig() config.Simulation {
	cfg := config.Default()
	cfg.NumDays = 5
	cfg.TotalShoppers = 20
	cfg.NegotiationDays = []int{1}
	cfg.Seller1 = config.SellerParams{CostMin: 60, CostMax: 60, InventoryMin: 50, InventoryMax: 50}
	cfg.Seller2 = config.SellerParams{CostMin: 70, CostMax: 70, InventoryMin: 30, InventoryMax: 30}
	return cfg
}

func TestRunDeterministicForSameSeed(t *testing.T) {
	run := func() Summary {
		sim, err := New(testConfig(), decision.RuleBased{})
		require.NoError(t, err)
		require.NoError(t, sim.Run(context.Background()))
		return sim.Summarize()
	}

	assert.Equal(t, run(), run(), "same seed and config must reproduce the run exactly")
}

func TestRunDiffersAcrossSeeds(t *testing.T) {
	cfgA := testConfig()
	cfgB := testConfig()
	cfgB.Seed = 2

	simA, err := New(cfgA, decision.RuleBased{})
	require.NoError(t, err)
	simB, err := New(cfgB, decision.RuleBased{})
	require.NoError(t, err)

	assert.NotEqual(t, simA.Shoppers[0], simB.Shoppers[0], "different seeds draw different populations")
}

func TestRunInventoryNeverNegative(t *testing.T) {
	sim, err := New(testConfig(), decision.RuleBased{})
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))

	for id, led := range sim.Ledgers {
		assert.GreaterOrEqual(t, led.Inventory, 0, "agent %s", id)
	}
}

func TestRunConservation(t *testing.T) {
	sim, err := New(testConfig(), decision.RuleBased{})
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))

	marketSold := map[agent.ID]int{}
	for _, s := range sim.MarketLog {
		marketSold[s.Seller] += s.Quantity
	}
	wholesaleSold := map[agent.ID]int{}
	wholesaleBought := map[agent.ID]int{}
	for _, tr := range sim.WholesaleLog {
		if tr.Status == TradeExecuted {
			wholesaleSold[tr.Seller] += tr.Quantity
			wholesaleBought[tr.Buyer] += tr.Quantity
		}
	}

	for id, led := range sim.Ledgers {
		expected := led.InitialInventory - marketSold[id] - wholesaleSold[id] + wholesaleBought[id]
		assert.Equal(t, expected, led.Inventory, "agent %s", id)
	}
}

func TestNegotiationSkippedWhenSellerHasNoInventory(t *testing.T) {
	cfg := testConfig()
	cfg.Seller1.InventoryMin, cfg.Seller1.InventoryMax = 0, 0
	cfg.Seller2.InventoryMin, cfg.Seller2.InventoryMax = 0, 0

	prov := &scripted{}
	sim, err := New(cfg, prov)
	require.NoError(t, err)
	require.NoError(t, sim.runNegotiations(context.Background(), 1))

	assert.Empty(t, prov.negotiationCalls, "no provider is consulted for an empty seller")
	require.Len(t, sim.WholesaleLog, 2)
	for _, tr := range sim.WholesaleLog {
		assert.Equal(t, TradeNoDeal, tr.Status)
	}
}

func TestSessionScheduleIsSellerMajor(t *testing.T) {
	cfg := testConfig()
	cfg.SecondWholesaler = true

	prov := &scripted{} // rejects every opening, so each session is one call
	sim, err := New(cfg, prov)
	require.NoError(t, err)
	require.NoError(t, sim.runNegotiations(context.Background(), 1))

	require.Len(t, sim.Sessions, 4)
	pairs := make([][2]agent.ID, 0, 4)
	for _, sess := range sim.Sessions {
		pairs = append(pairs, [2]agent.ID{sess.Seller, sess.Buyer})
	}
	assert.Equal(t, [][2]agent.ID{
		{agent.Seller1, agent.Wholesaler},
		{agent.Seller1, agent.Wholesaler2},
		{agent.Seller2, agent.Wholesaler},
		{agent.Seller2, agent.Wholesaler2},
	}, pairs)
}

func TestOverInventoryAcceptIsAborted(t *testing.T) {
	prov := &scripted{
		negotiate: func(nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
			if nc.Self.IsWholesaler() {
				return decision.NegotiationDecision{
					Action: negotiation.ActionOffer, Price: 70, Quantity: 1000,
				}, nil
			}
			return decision.NegotiationDecision{Action: negotiation.ActionAccept}, nil
		},
	}
	sim, err := New(testConfig(), prov)
	require.NoError(t, err)
	require.NoError(t, sim.runNegotiations(context.Background(), 1))

	require.Len(t, sim.WholesaleLog, 2)
	for _, tr := range sim.WholesaleLog {
		assert.Equal(t, TradeAborted, tr.Status)
	}
	// Nothing moved.
	assert.Equal(t, 50, sim.Ledgers[agent.Seller1].Inventory)
	assert.Equal(t, 30, sim.Ledgers[agent.Seller2].Inventory)
	assert.Equal(t, 50000.0, sim.Ledgers[agent.Wholesaler].Cash)
}

func TestExecutedTradeSettlesBeforeNextSession(t *testing.T) {
	prov := &scripted{
		negotiate: func(nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
			if nc.Self.IsWholesaler() {
				return decision.NegotiationDecision{
					Action: negotiation.ActionOffer, Price: 70, Quantity: 10,
				}, nil
			}
			return decision.NegotiationDecision{Action: negotiation.ActionAccept}, nil
		},
	}
	sim, err := New(testConfig(), prov)
	require.NoError(t, err)
	require.NoError(t, sim.runNegotiations(context.Background(), 1))

	assert.Equal(t, 40, sim.Ledgers[agent.Seller1].Inventory)
	assert.Equal(t, 20, sim.Ledgers[agent.Seller2].Inventory)
	assert.Equal(t, 20, sim.Ledgers[agent.Wholesaler].Inventory)
	assert.Equal(t, 50000.0-2*700, sim.Ledgers[agent.Wholesaler].Cash)
}

func TestProtocolViolationForfeitsSession(t *testing.T) {
	prov := &scripted{
		negotiate: func(nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
			if nc.Self.IsWholesaler() {
				return decision.NegotiationDecision{
					Action: negotiation.ActionOffer, Price: 70, Quantity: 10,
				}, nil
			}
			// Malformed counter: negative price.
			return decision.NegotiationDecision{
				Action: negotiation.ActionOffer, Price: -5, Quantity: 10,
			}, nil
		},
	}
	sim, err := New(testConfig(), prov)
	require.NoError(t, err)
	require.NoError(t, sim.runNegotiations(context.Background(), 1))

	for _, tr := range sim.WholesaleLog {
		assert.Equal(t, TradeNoDeal, tr.Status)
	}
	assert.Equal(t, 50, sim.Ledgers[agent.Seller1].Inventory)
}

func TestProviderErrorAbortsRun(t *testing.T) {
	boom := errors.New("upstream unavailable")
	prov := &scripted{
		market: func(mc decision.MarketContext) (decision.MarketDecision, error) {
			if mc.Day == 3 && mc.Self == agent.Seller2 {
				return decision.MarketDecision{}, boom
			}
			return decision.MarketDecision{}, nil
		},
	}
	cfg := testConfig()
	cfg.NegotiationDays = nil

	sim, err := New(cfg, prov)
	require.NoError(t, err)

	err = sim.Run(context.Background())
	var perr *decision.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Day)
	assert.Equal(t, agent.Seller2, perr.Agent)
	assert.ErrorIs(t, err, boom)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim, err := New(testConfig(), decision.RuleBased{})
	require.NoError(t, err)
	assert.Error(t, sim.Run(ctx))
}

func TestDepreciationAppliedDaily(t *testing.T) {
	cfg := testConfig()
	cfg.NegotiationDays = nil

	prov := &scripted{} // zero offers: nothing sells, only depreciation moves
	sim, err := New(cfg, prov)
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))

	led := sim.Ledgers[agent.Seller1]
	// 5 days of 3000/5 per day.
	assert.InDelta(t, 3000.0, led.AccumulatedDepreciation, 1e-9)
	assert.InDelta(t, 0.0, led.BookValueRemaining, 1e-9)
}

func TestSummaryAggregates(t *testing.T) {
	prov := &scripted{
		negotiate: func(nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
			if nc.Self.IsWholesaler() {
				return decision.NegotiationDecision{
					Action: negotiation.ActionOffer, Price: 70, Quantity: 10,
				}, nil
			}
			return decision.NegotiationDecision{Action: negotiation.ActionAccept}, nil
		},
	}
	sim, err := New(testConfig(), prov)
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))

	sum := sim.Summarize()
	assert.Equal(t, 2, sum.WholesaleTrades)
	assert.Equal(t, 20, sum.WholesaleVolume)
	assert.InDelta(t, 70.0, sum.AvgWholesalePrice, 1e-9)
	assert.Len(t, sum.Agents, 3)
}

func TestWholesalerPeerNotesGatedByCommunicationToggle(t *testing.T) {
	run := func(enabled bool) (neg, mkt map[agent.ID]map[agent.ID]string) {
		cfg := testConfig()
		cfg.SecondWholesaler = true
		cfg.EnableCommunication = enabled

		neg = map[agent.ID]map[agent.ID]string{}
		mkt = map[agent.ID]map[agent.ID]string{}
		prov := &scripted{
			negotiate: func(nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
				neg[nc.Self] = nc.PeerNotes
				dec := decision.NegotiationDecision{Action: negotiation.ActionReject}
				if nc.Self == agent.Wholesaler {
					dec.PeerNote = "seller 1 will not move below 80"
				}
				return dec, nil
			},
			market: func(mc decision.MarketContext) (decision.MarketDecision, error) {
				mkt[mc.Self] = mc.PeerNotes
				return decision.MarketDecision{}, nil
			},
		}
		sim, err := New(cfg, prov)
		require.NoError(t, err)
		require.NoError(t, sim.Run(context.Background()))
		return neg, mkt
	}

	neg, mkt := run(true)
	assert.Equal(t, "seller 1 will not move below 80", neg[agent.Wholesaler2][agent.Wholesaler],
		"the second wholesaler hears the first one's note within the same negotiation round")
	assert.Equal(t, "seller 1 will not move below 80", mkt[agent.Wholesaler2][agent.Wholesaler])
	assert.NotContains(t, mkt[agent.Wholesaler], agent.Wholesaler, "authors never read their own notes")
	assert.Nil(t, mkt[agent.Seller1], "sellers are outside the channel")

	neg, mkt = run(false)
	assert.Nil(t, neg[agent.Wholesaler2])
	assert.Nil(t, mkt[agent.Wholesaler2])
}

func TestSellerPeerNotesDiscarded(t *testing.T) {
	cfg := testConfig()
	cfg.SecondWholesaler = true

	var wholesalerView map[agent.ID]string
	prov := &scripted{
		market: func(mc decision.MarketContext) (decision.MarketDecision, error) {
			if mc.Self == agent.Wholesaler {
				wholesalerView = mc.PeerNotes
			}
			return decision.MarketDecision{PeerNote: "colluding would be nice"}, nil
		},
	}
	sim, err := New(cfg, prov)
	require.NoError(t, err)
	require.NoError(t, sim.Run(context.Background()))

	// Only Wholesaler_2's note survives; the sellers' are dropped.
	assert.Equal(t, map[agent.ID]string{agent.Wholesaler2: "colluding would be nice"}, wholesalerView)
}
