package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/commodity-market/internal/agent"
	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/ledger"
	"github.com/talgya/commodity-market/internal/negotiation"
)

func TestExtractJSONPlainObject(t *testing.T) {
	var reply negotiationReply
	err := extractJSON(`{"action":"offer","price":82,"quantity":150,"justification":"fair","scratchpad_update":""}`, &reply)
	require.NoError(t, err)
	assert.Equal(t, "offer", reply.Action)
	assert.Equal(t, 82, reply.Price)
	assert.Equal(t, 150, reply.Quantity)
}

func TestExtractJSONWrappedInProse(t *testing.T) {
	text := "Sure, here is my decision:\n```json\n{\"price\": 95, \"quantity\": 40, \"reasoning\": \"mid-market\", \"scratchpad_update\": \"held at 95\"}\n```\nLet me know if you need anything else."

	var reply marketReply
	err := extractJSON(text, &reply)
	require.NoError(t, err)
	assert.Equal(t, 95, reply.Price)
	assert.Equal(t, 40, reply.Quantity)
	assert.Equal(t, "held at 95", reply.ScratchpadUpdate)
}

func TestExtractJSONNoObject(t *testing.T) {
	var reply marketReply
	err := extractJSON("I would rather not say.", &reply)
	assert.Error(t, err)
}

func TestExtractJSONGarbageBetweenBraces(t *testing.T) {
	var reply marketReply
	err := extractJSON("{this is not json}", &reply)
	assert.Error(t, err)
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(NewClient(""))
	assert.Error(t, err)
}

func TestNegotiationPromptCarriesDashboardAndConstraints(t *testing.T) {
	nc := decision.NegotiationContext{
		Day:          10,
		NumDays:      100,
		Self:         agent.Seller1,
		Counterparty: agent.Wholesaler,
		Session:      negotiation.NewSession(agent.Seller1, agent.Wholesaler, 10),
		Round:        1,
		Metrics: ledger.Metrics{
			InitialInvestment:  6000,
			Revenue:            1800,
			InventoryRemaining: 70,
			UnitsSold:          30,
		},
		Inventory:       70,
		Cash:            1800,
		CostPerUnit:     60,
		MaxRounds:       10,
		NegotiationDays: []int{1, 25, 50, 75},
		Scratchpad:      "[day 1] opened high, wholesaler balked",
	}

	user := negotiationUserPrompt(nc)
	assert.Contains(t, user, "BUSINESS PERFORMANCE DASHBOARD")
	assert.Contains(t, user, "Initial Investment: $6,000")
	assert.Contains(t, user, "Maximum rounds: 10")
	assert.Contains(t, user, "1, 25, 50, 75")
	assert.Contains(t, user, "wholesaler balked")

	system := negotiationSystemPrompt(nc)
	assert.Contains(t, system, "SELLER")
	assert.Contains(t, system, "$60 per unit")
}

func TestMarketPromptListsCompetitorPrices(t *testing.T) {
	mc := decision.MarketContext{
		Day:         30,
		NumDays:     100,
		Self:        agent.Wholesaler,
		Inventory:   120,
		Cash:        4000,
		CostPerUnit: 0,
		CompetitorPrices: map[agent.ID]int{
			agent.Seller1: 102,
			agent.Seller2: 98,
		},
	}

	user := marketUserPrompt(mc)
	assert.Contains(t, user, "Seller_1: $102")
	assert.Contains(t, user, "Seller_2: $98")
}

func TestMarketPromptOmitsCompetitorsWhenUnknown(t *testing.T) {
	user := marketUserPrompt(decision.MarketContext{
		Day: 1, NumDays: 100, Self: agent.Seller1, Inventory: 100, CostPerUnit: 60,
	})
	assert.NotContains(t, user, "COMPETITOR")
}

func TestPromptsCarryPeerNotesWhenChannelOpen(t *testing.T) {
	open := decision.MarketContext{
		Day: 10, NumDays: 100, Self: agent.Wholesaler2, Inventory: 50,
		PeerNotes: map[agent.ID]string{agent.Wholesaler: "holding at 95 this week"},
	}

	user := marketUserPrompt(open)
	assert.Contains(t, user, "MESSAGES FROM OTHER WHOLESALERS")
	assert.Contains(t, user, "Wholesaler: holding at 95 this week")
	assert.Contains(t, marketSystemPrompt(open), "peer_note")

	closed := open
	closed.PeerNotes = nil
	assert.NotContains(t, marketUserPrompt(closed), "MESSAGES FROM OTHER WHOLESALERS")
	assert.NotContains(t, marketSystemPrompt(closed), "peer_note")
}
