// Package negotiation implements the bounded-round bilateral bargaining
// protocol between a wholesaler (buyer) and a seller. The protocol is an
// explicit state machine over the offer history; the whole branching
// structure is the small closed set of cases in State.
package negotiation

import (
	"errors"
	"fmt"

	"github.com/talgya/commodity-market/internal/agent"
)

// Action is what an offer message does to the session.
type Action string

const (
	ActionOffer  Action = "offer"
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Valid reports whether the action is one of the protocol's three verbs.
func (a Action) Valid() bool {
	return a == ActionOffer || a == ActionAccept || a == ActionReject
}

// Offer is one message in a negotiation session.
type Offer struct {
	Agent     agent.ID `json:"agent"`
	Price     int      `json:"price"`
	Quantity  int      `json:"quantity"`
	Rationale string   `json:"justification"`
	Action    Action   `json:"action"`
}

// State enumerates the protocol states derived from the session history.
type State uint8

const (
	// StateStart: no history, the buyer proposes first.
	StateStart State = iota
	// StateBuyerTurn: the seller spoke last, the buyer responds.
	StateBuyerTurn
	// StateSellerTurn: the buyer spoke last, the seller responds.
	StateSellerTurn
	// StateTradeExecuted: the last message accepted the preceding offer.
	StateTradeExecuted
	// StateNoDeal: rejected, round limit exceeded, or a malformed accept.
	StateNoDeal
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateBuyerTurn:
		return "BUYER_TURN"
	case StateSellerTurn:
		return "SELLER_TURN"
	case StateTradeExecuted:
		return "TRADE_EXECUTED"
	case StateNoDeal:
		return "NO_DEAL"
	}
	return "UNKNOWN"
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateTradeExecuted || s == StateNoDeal
}

var (
	// ErrWrongTurn marks an offer appended out of turn.
	ErrWrongTurn = errors.New("offer appended out of turn")
	// ErrSessionClosed marks an offer appended after a terminal state.
	ErrSessionClosed = errors.New("session already terminal")
	// ErrMalformedOffer marks an offer with an invalid action or
	// negative price/quantity.
	ErrMalformedOffer = errors.New("malformed offer")
)

// Session is one bilateral bargaining exchange for an ordered
// (seller, buyer) pair. The history is append-only.
type Session struct {
	Seller    agent.ID `json:"seller"`
	Buyer     agent.ID `json:"buyer"`
	MaxRounds int      `json:"max_rounds"`
	History   []Offer  `json:"history"`
}

// NewSession starts an empty session between the pair.
func NewSession(seller, buyer agent.ID, maxRounds int) *Session {
	return &Session{Seller: seller, Buyer: buyer, MaxRounds: maxRounds}
}

// Round is the current round number: one buyer-offer/seller-response
// pair per round.
func (s *Session) Round() int {
	return len(s.History)/2 + 1
}

// State is the pure transition function over the history.
func (s *Session) State() State {
	if len(s.History) == 0 {
		return StateStart
	}
	last := s.History[len(s.History)-1]
	switch last.Action {
	case ActionAccept:
		// The trade binds the offer being accepted, so an accept with
		// nothing before it has no terms and ends the session instead.
		if len(s.History) < 2 || s.History[len(s.History)-2].Action != ActionOffer {
			return StateNoDeal
		}
		return StateTradeExecuted
	case ActionReject:
		// A reject ends the session immediately regardless of round.
		return StateNoDeal
	}
	if s.Round() > s.MaxRounds {
		return StateNoDeal
	}
	if last.Agent == s.Buyer {
		return StateSellerTurn
	}
	return StateBuyerTurn
}

// NextSpeaker returns who must produce the next offer, or false if the
// session is terminal.
func (s *Session) NextSpeaker() (agent.ID, bool) {
	switch s.State() {
	case StateStart, StateBuyerTurn:
		return s.Buyer, true
	case StateSellerTurn:
		return s.Seller, true
	}
	return agent.ID{}, false
}

// Append applies one offer to the session, enforcing turn order and
// basic well-formedness. The protocol does not clamp quantities here;
// over-inventory accepts are caught by the execution guard.
func (s *Session) Append(o Offer) error {
	speaker, open := s.NextSpeaker()
	if !open {
		return ErrSessionClosed
	}
	if o.Agent != speaker {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongTurn, speaker, o.Agent)
	}
	if !o.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrMalformedOffer, o.Action)
	}
	if o.Price < 0 || o.Quantity < 0 {
		return fmt.Errorf("%w: negative price or quantity", ErrMalformedOffer)
	}
	s.History = append(s.History, o)
	return nil
}

// AcceptedTerms returns the binding price and quantity of an accepted
// session: the offer immediately preceding the accept message, never
// the accept itself.
func (s *Session) AcceptedTerms() (price, quantity int, ok bool) {
	if s.State() != StateTradeExecuted {
		return 0, 0, false
	}
	binding := s.History[len(s.History)-2]
	return binding.Price, binding.Quantity, true
}

// LastOffer returns the most recent message, if any.
func (s *Session) LastOffer() (Offer, bool) {
	if len(s.History) == 0 {
		return Offer{}, false
	}
	return s.History[len(s.History)-1], true
}
