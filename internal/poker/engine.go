package poker

import (
	"math/rand"
	"time"

	"riverdeal/card"
)

// Engine owns one hand's full lifecycle: button rotation, dealing,
// street progression, side-pot showdown resolution, and the projections
// consumed by clients and by the AI policy.
type Engine struct {
	Betting *BettingState

	deck      *card.CardList
	board     []card.Card
	holeCards map[SeatId][]card.Card
	street    Street

	buttonIndex int
	sbPlayer    SeatId
	bbPlayer    SeatId

	pendingEvents []Event

	startingStacksAtHand map[SeatId]int

	eval Evaluator

	strengthSamples int
	strengthRNG     *rand.Rand
}

// NewEngine constructs an Engine over the given seated players (fixed
// table order), blind sizes, starting stack, and an injected Evaluator.
// No global/default evaluator is used: it must be supplied explicitly.
func NewEngine(players []SeatId, smallBlind, bigBlind, startingStack int, eval Evaluator) *Engine {
	betting := NewBettingState(smallBlind, bigBlind, startingStack)
	betting.Players = append([]SeatId{}, players...)
	return &Engine{
		Betting:              betting,
		holeCards:            make(map[SeatId][]card.Card),
		eval:                 eval,
		startingStacksAtHand: make(map[SeatId]int),
		buttonIndex:          -1,
	}
}

// EnableHandStrengthEstimate turns on the optional Monte Carlo UI
// annotation, sampling n rollouts per toPublicState call. It uses its own
// RNG, independent from the dealing RNG, so enabling it never perturbs
// deck order.
func (e *Engine) EnableHandStrengthEstimate(n int) {
	e.strengthSamples = n
	if e.strengthRNG == nil {
		e.strengthRNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

func (e *Engine) queue(t EventType, data map[string]any) {
	e.pendingEvents = append(e.pendingEvents, Event{Type: t, Data: data})
}

// newHand starts a fresh hand among the given fixed table seat order.
// rotateButton advances the button to the next funded seat (skipping
// zero-chip seats); when false (the very first hand), the current button
// index is used as-is.
func (e *Engine) NewHand(table []SeatId, seed int64, rotateButton bool) error {
	funded := fundedSeats(table, e.Betting.Stacks, e.Betting.StartingStack)
	if len(funded) < 2 {
		return ErrNotEnoughSeats
	}

	if e.buttonIndex < 0 {
		e.buttonIndex = indexOf(table, funded[0])
	} else {
		// buttonIndex points into the previous hand's Players; re-anchor it
		// on table before rotating.
		e.buttonIndex = indexOf(table, e.buttonForPayout())
	}
	if rotateButton {
		e.buttonIndex = nextFundedIndex(table, e.buttonIndex, e.Betting.Stacks, e.Betting.StartingStack)
	}
	button := table[e.buttonIndex]

	var sb, bb, first SeatId
	if len(funded) == 2 {
		sb = button
		bb = nextFunded(table, button, e.Betting.Stacks, e.Betting.StartingStack)
		first = sb
	} else {
		sb = nextFunded(table, button, e.Betting.Stacks, e.Betting.StartingStack)
		bb = nextFunded(table, sb, e.Betting.Stacks, e.Betting.StartingStack)
		first = nextFunded(table, bb, e.Betting.Stacks, e.Betting.StartingStack)
	}
	e.sbPlayer = sb
	e.bbPlayer = bb

	e.deck = card.NewShuffledDeck(seed)
	e.board = nil
	e.holeCards = make(map[SeatId][]card.Card)
	e.street = Preflop
	e.pendingEvents = nil

	e.startingStacksAtHand = make(map[SeatId]int)
	for _, s := range funded {
		if _, ok := e.Betting.Stacks[s]; !ok {
			e.Betting.Stacks[s] = e.Betting.StartingStack
		}
		e.startingStacksAtHand[s] = e.Betting.Stacks[s]
	}

	for _, s := range funded {
		cards, ok := e.deck.PopCards(2)
		if !ok {
			return ErrNotEnoughSeats
		}
		e.holeCards[s] = cards
	}

	e.Betting.startHand(funded, sb, bb, first)
	// From here on buttonIndex indexes Betting.Players (the funded seats).
	e.buttonIndex = indexOf(funded, button)
	e.queue(EventDealHole, map[string]any{})
	return nil
}

// startNextHand is equivalent to newHand(seed, rotateButton=true).
func (e *Engine) StartNextHand(table []SeatId, seed int64) error {
	return e.NewHand(table, seed, true)
}

func fundedSeats(table []SeatId, stacks map[SeatId]int, startingStack int) []SeatId {
	var out []SeatId
	for _, s := range table {
		stack, seen := stacks[s]
		if !seen {
			stack = startingStack
		}
		if stack > 0 {
			out = append(out, s)
		}
	}
	return out
}

func indexOf(table []SeatId, seat SeatId) int {
	for i, s := range table {
		if s == seat {
			return i
		}
	}
	return 0
}

func nextFundedIndex(table []SeatId, from int, stacks map[SeatId]int, startingStack int) int {
	n := len(table)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		stack, seen := stacks[table[idx]]
		if !seen {
			stack = startingStack
		}
		if stack > 0 {
			return idx
		}
	}
	return from
}

func nextFunded(table []SeatId, from SeatId, stacks map[SeatId]int, startingStack int) SeatId {
	idx := indexOf(table, from)
	next := nextFundedIndex(table, idx, stacks, startingStack)
	return table[next]
}

// dealFlop deals 3 community cards and advances the street.
func (e *Engine) DealFlop() {
	cards, _ := e.deck.PopCards(3)
	e.board = append(e.board, cards...)
	e.street = Flop
	e.queue(EventDealFlop, map[string]any{})
}

// dealTurn deals 1 community card and advances the street.
func (e *Engine) DealTurn() {
	cards, _ := e.deck.PopCards(1)
	e.board = append(e.board, cards...)
	e.street = Turn
	e.queue(EventDealTurn, map[string]any{})
}

// dealRiver deals 1 community card and advances the street.
func (e *Engine) DealRiver() {
	cards, _ := e.deck.PopCards(1)
	e.board = append(e.board, cards...)
	e.street = River
	e.queue(EventDealRiver, map[string]any{})
}

// step submits an action from seat, advancing street / resolving the hand
// as needed.
func (e *Engine) Step(action Action, seat SeatId) (StepResult, error) {
	res, err := e.Betting.step(action, seat)
	if err != nil {
		return res, err
	}

	if res.HandOver {
		e.endHandByFold(res.Winner)
		return res, nil
	}

	if res.RoundComplete {
		e.advanceStreetOrShowdown()
	}
	return res, nil
}

func (e *Engine) endHandByFold(winner SeatId) {
	potTotal := e.Betting.Pot
	button := e.buttonForPayout()
	e.Betting.payout([]SeatId{winner}, button)
	e.queue(EventHandEnd, map[string]any{
		"winner": string(winner),
		"pot":    potTotal,
	})
}

func (e *Engine) buttonForPayout() SeatId {
	if e.buttonIndex >= 0 && e.buttonIndex < len(e.Betting.Players) {
		return e.Betting.Players[e.buttonIndex]
	}
	return ""
}

func (e *Engine) advanceStreetOrShowdown() {
	active := e.Betting.activePlayers()
	allInRunout := allAllInOrFewer(active, e.Betting.AllInPlayers)

	switch e.street {
	case Preflop:
		e.DealFlop()
	case Flop:
		e.DealTurn()
	case Turn:
		e.DealRiver()
	case River:
		e.ResolveShowdown()
		return
	}

	first, ok := e.firstToActFromButton()
	if !ok || allInRunout {
		// No eligible actor (or only all-in seats remain): keep dealing
		// the rest of the streets without a betting round, then show down.
		for e.street != River {
			switch e.street {
			case Flop:
				e.DealTurn()
			case Turn:
				e.DealRiver()
			}
		}
		e.ResolveShowdown()
		return
	}
	e.Betting.startNewRound(first)
}

func allAllInOrFewer(active []SeatId, allIn map[SeatId]bool) bool {
	liveToAct := 0
	for _, s := range active {
		if !allIn[s] {
			liveToAct++
		}
	}
	return liveToAct < 2
}

func (e *Engine) firstToActFromButton() (SeatId, bool) {
	table := e.Betting.Players
	n := len(table)
	if n == 0 {
		return "", false
	}
	btnIdx := 0
	if e.buttonIndex >= 0 {
		btn := e.buttonForPayout()
		btnIdx = indexOf(table, btn)
	}
	for i := 1; i <= n; i++ {
		s := table[(btnIdx+i)%n]
		if !e.Betting.FoldedPlayers[s] && !e.Betting.AllInPlayers[s] {
			return s, true
		}
	}
	return "", false
}

// resolveShowdown evaluates every active seat's best hand and pays side
// pots by evaluator score, splitting ties evenly with the remainder to
// the button when it is among that pot's winners, else to the first winner.
func (e *Engine) ResolveShowdown() {
	e.street = Showdown
	e.queue(EventShowdown, map[string]any{})

	pots := e.Betting.sidePots()
	button := e.buttonForPayout()

	var totalPaid int
	var winnersAll []SeatId
	var topCategory HandCategory
	haveCategory := false

	for _, pot := range pots {
		winners, category := e.bestSeats(pot.Eligible)
		if !haveCategory {
			topCategory = category
			haveCategory = true
		}
		e.payPotLayer(pot.Amount, winners, button)
		totalPaid += pot.Amount
		winnersAll = append(winnersAll, winners...)
	}
	e.Betting.Pot = 0
	e.Betting.HandOver = true

	e.queue(EventHandEnd, map[string]any{
		"winners":       dedupeSeats(winnersAll),
		"hand_category": topCategory.String(),
		"pot":           totalPaid,
	})
}

func (e *Engine) payPotLayer(amount int, winners []SeatId, remainderTo SeatId) {
	if len(winners) == 0 || amount == 0 {
		return
	}
	share := amount / len(winners)
	remainder := amount % len(winners)
	for _, w := range winners {
		e.Betting.Stacks[w] += share
	}
	if remainderTo == "" {
		remainderTo = winners[0]
	}
	found := false
	for _, w := range winners {
		if w == remainderTo {
			found = true
		}
	}
	if !found {
		remainderTo = winners[0]
	}
	e.Betting.Stacks[remainderTo] += remainder
}

func (e *Engine) bestSeats(eligible []SeatId) ([]SeatId, HandCategory) {
	bestScore := -1
	var bestCategory HandCategory
	var winners []SeatId
	for _, s := range eligible {
		hole := e.holeCards[s]
		if len(hole) != 2 {
			continue
		}
		score, category := e.eval.Score([2]card.Card{hole[0], hole[1]}, e.board)
		if bestScore == -1 || score < bestScore {
			bestScore = score
			bestCategory = category
			winners = []SeatId{s}
		} else if score == bestScore {
			winners = append(winners, s)
		}
	}
	return winners, bestCategory
}

func dedupeSeats(in []SeatId) []SeatId {
	seen := make(map[SeatId]bool)
	var out []SeatId
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// drainEvents returns and clears the queued events.
func (e *Engine) DrainEvents() []Event {
	out := e.pendingEvents
	e.pendingEvents = nil
	return out
}

// utility is this seat's net chip change versus the start of the hand.
func (e *Engine) Utility(seat SeatId) int {
	return e.Betting.Stacks[seat] - e.startingStacksAtHand[seat]
}

// Street returns the current street.
func (e *Engine) Street() Street { return e.street }

// Board returns the current community cards.
func (e *Engine) Board() []card.Card { return e.board }

// HoleCards returns the hole cards dealt to seat, or nil if none.
func (e *Engine) HoleCards(seat SeatId) []card.Card { return e.holeCards[seat] }

// HoleCardStrings returns seat's hole cards in wire string form (e.g. "As").
func (e *Engine) HoleCardStrings(seat SeatId) []string { return cardStrings(e.holeCards[seat]) }

// Seating returns the current hand's button, small blind, and big blind
// seats, as computed at NewHand/StartNextHand time.
func (e *Engine) Seating() (button, smallBlind, bigBlind SeatId) {
	return e.buttonForPayout(), e.sbPlayer, e.bbPlayer
}
