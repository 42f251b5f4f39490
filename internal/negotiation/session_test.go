package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/commodity-market/internal/agent"
)

func buyerOffer(price, qty int) Offer {
	return Offer{Agent: agent.Wholesaler, Price: price, Quantity: qty, Action: ActionOffer}
}

func sellerOffer(price, qty int) Offer {
	return Offer{Agent: agent.Seller1, Price: price, Quantity: qty, Action: ActionOffer}
}

func TestSessionBuyerOpens(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)

	assert.Equal(t, StateStart, s.State())
	speaker, open := s.NextSpeaker()
	require.True(t, open)
	assert.Equal(t, agent.Wholesaler, speaker)

	require.NoError(t, s.Append(buyerOffer(70, 100)))
	speaker, open = s.NextSpeaker()
	require.True(t, open)
	assert.Equal(t, agent.Seller1, speaker)
	assert.Equal(t, StateSellerTurn, s.State())
}

func TestSessionAcceptBindsPrecedingOffer(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)
	require.NoError(t, s.Append(buyerOffer(70, 100)))
	require.NoError(t, s.Append(sellerOffer(82, 90)))
	require.NoError(t, s.Append(Offer{Agent: agent.Wholesaler, Action: ActionAccept}))

	assert.Equal(t, StateTradeExecuted, s.State())
	price, qty, ok := s.AcceptedTerms()
	require.True(t, ok)
	assert.Equal(t, 82, price, "accept binds the seller's counter, not the buyer's own offer")
	assert.Equal(t, 90, qty)
}

func TestSessionRejectEndsImmediately(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)
	require.NoError(t, s.Append(buyerOffer(70, 100)))
	require.NoError(t, s.Append(Offer{Agent: agent.Seller1, Action: ActionReject}))

	assert.Equal(t, StateNoDeal, s.State())
	_, _, ok := s.AcceptedTerms()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Append(buyerOffer(75, 100)), ErrSessionClosed)
}

func TestSessionTerminatesAfterMaxRounds(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)

	// Ten full rounds of offer/counter with no agreement.
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(buyerOffer(70+i, 100)))
		require.NoError(t, s.Append(sellerOffer(90-i, 100)))
	}

	assert.Equal(t, 11, s.Round())
	assert.Equal(t, StateNoDeal, s.State())
	_, open := s.NextSpeaker()
	assert.False(t, open, "session must be closed at round 11")
	_, _, ok := s.AcceptedTerms()
	assert.False(t, ok, "round-limit expiry never executes a trade")
}

func TestSessionAcceptAsOpeningMoveIsNoDeal(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)
	require.NoError(t, s.Append(Offer{Agent: agent.Wholesaler, Action: ActionAccept}))

	assert.Equal(t, StateNoDeal, s.State(), "an accept with no standing offer has no terms")
}

func TestSessionAcceptAfterAcceptHasNoTerms(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)
	require.NoError(t, s.Append(buyerOffer(70, 100)))

	// The seller accepts the buyer's opening offer.
	require.NoError(t, s.Append(Offer{Agent: agent.Seller1, Action: ActionAccept}))
	price, qty, ok := s.AcceptedTerms()
	require.True(t, ok)
	assert.Equal(t, 70, price)
	assert.Equal(t, 100, qty)
}

func TestSessionRejectsOutOfTurnAndMalformed(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)

	assert.ErrorIs(t, s.Append(sellerOffer(90, 100)), ErrWrongTurn)
	assert.ErrorIs(t, s.Append(Offer{Agent: agent.Wholesaler, Action: Action("barter")}), ErrMalformedOffer)
	assert.ErrorIs(t, s.Append(Offer{Agent: agent.Wholesaler, Action: ActionOffer, Price: -1}), ErrMalformedOffer)
	assert.Empty(t, s.History, "failed appends must not mutate the session")
}

func TestSessionRoundCounting(t *testing.T) {
	s := NewSession(agent.Seller1, agent.Wholesaler, 10)
	assert.Equal(t, 1, s.Round())

	require.NoError(t, s.Append(buyerOffer(70, 100)))
	assert.Equal(t, 1, s.Round(), "round advances per offer/response pair")

	require.NoError(t, s.Append(sellerOffer(90, 100)))
	assert.Equal(t, 2, s.Round())
}
