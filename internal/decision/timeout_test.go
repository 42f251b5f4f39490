package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/commodity-market/internal/negotiation"
)

// stalled never answers within any reasonable deadline.
type stalled struct{}

func (stalled) ProposeNegotiationOffer(context.Context, NegotiationContext) (NegotiationDecision, error) {
	time.Sleep(5 * time.Second)
	return NegotiationDecision{}, nil
}

func (stalled) ProposeMarketOffer(context.Context, MarketContext) (MarketDecision, error) {
	time.Sleep(5 * time.Second)
	return MarketDecision{}, nil
}

func TestTimeoutMapsNegotiationToReject(t *testing.T) {
	p := WithTimeout(stalled{}, 10*time.Millisecond)

	dec, err := p.ProposeNegotiationOffer(context.Background(), NegotiationContext{})
	require.NoError(t, err, "a timeout is a decision, not a failure")
	assert.Equal(t, negotiation.ActionReject, dec.Action)
}

func TestTimeoutMapsMarketToZeroOffer(t *testing.T) {
	p := WithTimeout(stalled{}, 10*time.Millisecond)

	dec, err := p.ProposeMarketOffer(context.Background(), MarketContext{})
	require.NoError(t, err)
	assert.Equal(t, 0, dec.Price)
	assert.Equal(t, 0, dec.Quantity)
}

func TestTimeoutPassesThroughFastProvider(t *testing.T) {
	p := WithTimeout(RuleBased{}, time.Second)

	dec, err := p.ProposeMarketOffer(context.Background(), MarketContext{
		Day: 1, NumDays: 100, Inventory: 100, CostPerUnit: 60,
	})
	require.NoError(t, err)
	assert.Greater(t, dec.Quantity, 0)
}
