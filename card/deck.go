package card

import "math/rand"

// FullDeck returns the 52 standard cards in a fixed order, lowest rank
// and suit first. Callers shuffle a copy before dealing.
func FullDeck() []Card {
	out := make([]Card, 0, 52)
	for _, base := range []Card{0x00, 0x10, 0x20, 0x30} {
		for rank := Card(1); rank <= 13; rank++ {
			out = append(out, base+rank)
		}
	}
	return out
}

// NewShuffledDeck builds a full 52-card deck and shuffles it with a
// *rand.Rand seeded deterministically from seed, so the same seed always
// produces the same deal order.
func NewShuffledDeck(seed int64) *CardList {
	deck := &CardList{}
	deck.Init(FullDeck())
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(deck.Count(), func(i, j int) {
		(*deck)[i], (*deck)[j] = (*deck)[j], (*deck)[i]
	})
	return deck
}
