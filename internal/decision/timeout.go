package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/talgya/commodity-market/internal/negotiation"
)

// WithTimeout bounds every provider call. A call that exceeds the
// deadline is mapped to the neutral decision for its phase: reject in a
// negotiation, a zero offer in the market round. The run continues
// deterministically instead of aborting.
func WithTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{inner: p, limit: d}
}

type timeoutProvider struct {
	inner Provider
	limit time.Duration
}

func (t *timeoutProvider) ProposeNegotiationOffer(ctx context.Context, nc NegotiationContext) (NegotiationDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	type result struct {
		dec NegotiationDecision
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dec, err := t.inner.ProposeNegotiationOffer(ctx, nc)
		ch <- result{dec, err}
	}()
	select {
	case r := <-ch:
		return r.dec, r.err
	case <-ctx.Done():
		slog.Warn("negotiation decision timed out, treating as reject",
			"agent", nc.Self, "day", nc.Day, "round", nc.Round)
		return NegotiationDecision{
			Action:    negotiation.ActionReject,
			Rationale: "decision timed out",
		}, nil
	}
}

func (t *timeoutProvider) ProposeMarketOffer(ctx context.Context, mc MarketContext) (MarketDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	type result struct {
		dec MarketDecision
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dec, err := t.inner.ProposeMarketOffer(ctx, mc)
		ch <- result{dec, err}
	}()
	select {
	case r := <-ch:
		return r.dec, r.err
	case <-ctx.Done():
		slog.Warn("market decision timed out, listing zero offer",
			"agent", mc.Self, "day", mc.Day)
		return MarketDecision{Reasoning: "decision timed out"}, nil
	}
}
