package poker

import "riverdeal/card"

// ActionHistoryEntry is the wire-friendly form of an ActionRecord.
type ActionHistoryEntry struct {
	Seat   string `json:"seat"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
}

// GameStatePublic is the per-viewer projection sent as a STATE message.
type GameStatePublic struct {
	SessionID            string                 `json:"session_id"`
	Street                string                 `json:"street"`
	Pot                   int                    `json:"pot"`
	CommunityCards        []string               `json:"community_cards"`
	PlayerHand             []string               `json:"player_hand,omitempty"`
	RevealedHands          map[string][]string    `json:"revealed_hands,omitempty"`
	FoldedPlayers          []string               `json:"folded_players"`
	Stacks                 map[string]int         `json:"stacks"`
	Bets                   map[string]int         `json:"bets"`
	ButtonPlayer            string                 `json:"button_player"`
	SmallBlindPlayer        string                 `json:"small_blind_player"`
	BigBlindPlayer          string                 `json:"big_blind_player"`
	CurrentPlayer           string                 `json:"current_player,omitempty"`
	LegalActions            []string               `json:"legal_actions,omitempty"`
	ToCall                  int                    `json:"to_call,omitempty"`
	MinRaiseTo              int                    `json:"min_raise_to,omitempty"`
	MaxRaiseTo              int                    `json:"max_raise_to,omitempty"`
	ActionHistory           []ActionHistoryEntry   `json:"action_history"`
	HandStrengthLabel       string                 `json:"hand_strength_label,omitempty"`
	HandStrengthPct         float64                `json:"hand_strength_pct,omitempty"`
	HandCategoryProbs       map[string]float64     `json:"hand_category_probs,omitempty"`
	AwaitingHandContinue    bool                   `json:"awaiting_hand_continue"`
}

// cardStrings renders cards in wire form: rank then suit letter (e.g. "As", "Td").
func cardStrings(cs []card.Card) []string {
	const ranks = "A23456789TJQK"
	const suits = "shcd"
	out := make([]string, len(cs))
	for i, c := range cs {
		r, s := int(c.Rank()), int(c.Suit())
		if r < 1 || r > 13 || s > 3 {
			out[i] = c.String()
			continue
		}
		out[i] = string(ranks[r-1]) + string(suits[s])
	}
	return out
}

// toPublicState builds the viewer-redacted projection: hole cards are
// shown only for viewer, unless the hand is over or at showdown, in
// which case every non-folded seat's hand is revealed.
func (e *Engine) ToPublicState(viewer SeatId, sessionID string, awaitingContinue bool) GameStatePublic {
	b := e.Betting
	s := GameStatePublic{
		SessionID:            sessionID,
		Street:               e.street.String(),
		Pot:                  b.Pot,
		CommunityCards:       cardStrings(e.board),
		Stacks:               make(map[string]int),
		Bets:                 make(map[string]int),
		AwaitingHandContinue: awaitingContinue,
	}

	for _, p := range b.Players {
		s.Stacks[string(p)] = b.Stacks[p]
		s.Bets[string(p)] = b.Contributions[p]
		if b.FoldedPlayers[p] {
			s.FoldedPlayers = append(s.FoldedPlayers, string(p))
		}
	}

	if e.buttonIndex >= 0 && e.buttonIndex < len(b.Players) {
		s.ButtonPlayer = string(b.Players[e.buttonIndex])
	}
	s.SmallBlindPlayer = string(e.sbPlayer)
	s.BigBlindPlayer = string(e.bbPlayer)

	reveal := e.street == Showdown || b.HandOver
	if reveal {
		s.RevealedHands = make(map[string][]string)
		for _, p := range b.Players {
			if !b.FoldedPlayers[p] {
				s.RevealedHands[string(p)] = cardStrings(e.holeCards[p])
			}
		}
	} else if hand := e.holeCards[viewer]; len(hand) > 0 {
		s.PlayerHand = cardStrings(hand)
	}

	if b.HasCurrent && !b.HandOver {
		s.CurrentPlayer = string(b.CurrentPlayer)
		actions := b.legalActions(b.CurrentPlayer)
		for _, a := range actions {
			s.LegalActions = append(s.LegalActions, a.String())
		}
		s.ToCall = b.toCall(b.CurrentPlayer)
		s.MinRaiseTo = b.minRaiseTo()
		s.MaxRaiseTo = b.maxRaiseTo(b.CurrentPlayer)
	}

	hist := b.ActionHistory
	if len(hist) > 10 {
		hist = hist[len(hist)-10:]
	}
	for _, r := range hist {
		s.ActionHistory = append(s.ActionHistory, ActionHistoryEntry{
			Seat:   string(r.Seat),
			Kind:   r.Action.Kind.String(),
			Amount: r.Action.Amount,
		})
	}

	if e.strengthSamples > 0 && !reveal {
		if hand := e.holeCards[viewer]; len(hand) == 2 {
			label, pct, probs := e.estimateHandStrength(hand)
			s.HandStrengthLabel = label
			s.HandStrengthPct = pct
			s.HandCategoryProbs = probs
		}
	}

	return s
}

// AIObservation is the observation handed to Policy.decide.
type AIObservation struct {
	Seat          SeatId
	HoleCards     []card.Card
	Board         []card.Card
	Pot           int
	Stacks        map[SeatId]int
	Contributions map[SeatId]int
	BigBlind      int
	LegalActions  []ActionKind
	ToCall        int
	MinRaiseTo    int
	MaxRaiseTo    int
	Street        Street
	ActionHistory []ActionRecord
}

// toAIState is the observation for the current actor, consumed by Policy.
func (e *Engine) ToAIState() AIObservation {
	b := e.Betting
	seat := b.CurrentPlayer
	return AIObservation{
		Seat:          seat,
		HoleCards:     e.holeCards[seat],
		Board:         e.board,
		Pot:           b.Pot,
		Stacks:        copyIntMap(b.Stacks),
		Contributions: copyIntMap(b.Contributions),
		BigBlind:      b.BigBlind,
		LegalActions:  b.legalActions(seat),
		ToCall:        b.toCall(seat),
		MinRaiseTo:    b.minRaiseTo(),
		MaxRaiseTo:    b.maxRaiseTo(seat),
		Street:        e.street,
		ActionHistory: append([]ActionRecord{}, b.ActionHistory...),
	}
}

func copyIntMap(in map[SeatId]int) map[SeatId]int {
	out := make(map[SeatId]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
