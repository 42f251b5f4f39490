package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/commodity-market/internal/decision"
	"github.com/talgya/commodity-market/internal/negotiation"
)

// Provider implements decision.Provider on top of the Claude client.
// Malformed model output is retried once before being reported as an
// error; the engine decides what an error means for the run.
type Provider struct {
	client *Client
}

// NewProvider wraps a configured client. The client must be enabled.
func NewProvider(client *Client) (*Provider, error) {
	if !client.Enabled() {
		return nil, fmt.Errorf("llm provider requires a configured client")
	}
	return &Provider{client: client}, nil
}

// negotiationReply is the JSON shape the model must produce in a
// negotiation turn.
type negotiationReply struct {
	Action           string `json:"action"`
	Price            int    `json:"price"`
	Quantity         int    `json:"quantity"`
	Justification    string `json:"justification"`
	ScratchpadUpdate string `json:"scratchpad_update"`
	PeerNote         string `json:"peer_note"`
}

// marketReply is the JSON shape for the daily market offer.
type marketReply struct {
	Price            int    `json:"price"`
	Quantity         int    `json:"quantity"`
	Reasoning        string `json:"reasoning"`
	ScratchpadUpdate string `json:"scratchpad_update"`
	PeerNote         string `json:"peer_note"`
}

func (p *Provider) ProposeNegotiationOffer(ctx context.Context, nc decision.NegotiationContext) (decision.NegotiationDecision, error) {
	system := negotiationSystemPrompt(nc)
	user := negotiationUserPrompt(nc)

	var reply negotiationReply
	if err := p.completeJSON(ctx, system, user, &reply); err != nil {
		return decision.NegotiationDecision{}, fmt.Errorf("negotiation decision: %w", err)
	}

	action := negotiation.Action(reply.Action)
	if !action.Valid() {
		return decision.NegotiationDecision{}, fmt.Errorf("negotiation decision: unknown action %q", reply.Action)
	}
	return decision.NegotiationDecision{
		Price:            reply.Price,
		Quantity:         reply.Quantity,
		Action:           action,
		Rationale:        reply.Justification,
		ScratchpadUpdate: reply.ScratchpadUpdate,
		PeerNote:         reply.PeerNote,
	}, nil
}

func (p *Provider) ProposeMarketOffer(ctx context.Context, mc decision.MarketContext) (decision.MarketDecision, error) {
	system := marketSystemPrompt(mc)
	user := marketUserPrompt(mc)

	var reply marketReply
	if err := p.completeJSON(ctx, system, user, &reply); err != nil {
		return decision.MarketDecision{}, fmt.Errorf("market decision: %w", err)
	}
	return decision.MarketDecision{
		Price:            reply.Price,
		Quantity:         reply.Quantity,
		Reasoning:        reply.Reasoning,
		ScratchpadUpdate: reply.ScratchpadUpdate,
		PeerNote:         reply.PeerNote,
	}, nil
}

// completeJSON calls the model and unmarshals the first JSON object in
// the reply, retrying once on unparseable output.
func (p *Provider) completeJSON(ctx context.Context, system, user string, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := p.client.Complete(ctx, system, user, 500)
		if err != nil {
			return err
		}
		if err := extractJSON(text, out); err != nil {
			slog.Warn("unparseable model reply", "attempt", attempt+1, "err", err)
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// extractJSON finds the outermost JSON object in text. The model may
// wrap its answer in explanation despite instructions.
func extractJSON(text string, out any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}
	return nil
}
