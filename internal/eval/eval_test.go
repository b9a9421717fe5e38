package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"riverdeal/card"
	"riverdeal/internal/poker"
)

func score(t *testing.T, hole [2]card.Card, board []card.Card) (int, poker.HandCategory) {
	t.Helper()
	e := New()
	s, c := e.Score(hole, board)
	return s, c
}

func TestScore_StraightFlush(t *testing.T) {
	hole := [2]card.Card{card.CardSpade9, card.CardSpadeT}
	board := []card.Card{card.CardSpadeJ, card.CardSpadeQ, card.CardSpadeK, card.CardHeart2, card.CardClub3}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.StraightFlush, cat)
}

func TestScore_WheelStraightFlush(t *testing.T) {
	hole := [2]card.Card{card.CardSpadeA, card.CardSpade2}
	board := []card.Card{card.CardSpade3, card.CardSpade4, card.CardSpade5, card.CardHeart9, card.CardClubT}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.StraightFlush, cat, "ace plays low to complete the wheel straight flush")
}

func TestScore_FourOfAKind(t *testing.T) {
	hole := [2]card.Card{card.CardSpadeK, card.CardHeartK}
	board := []card.Card{card.CardClubK, card.CardDiamondK, card.CardHeart2, card.CardClub3, card.CardDiamond4}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.FourOfAKind, cat)
}

func TestScore_FullHouse(t *testing.T) {
	hole := [2]card.Card{card.CardSpadeK, card.CardHeartK}
	board := []card.Card{card.CardClubK, card.CardDiamond2, card.CardHeart2, card.CardClub3, card.CardDiamond4}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.FullHouse, cat)
}

func TestScore_Flush(t *testing.T) {
	hole := [2]card.Card{card.CardSpade2, card.CardSpade5}
	board := []card.Card{card.CardSpade8, card.CardSpadeJ, card.CardSpadeK, card.CardHeart4, card.CardClub9}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.Flush, cat)
}

func TestScore_Straight(t *testing.T) {
	hole := [2]card.Card{card.CardSpade9, card.CardHeartT}
	board := []card.Card{card.CardClubJ, card.CardDiamondQ, card.CardSpadeK, card.CardHeart2, card.CardClub3}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.Straight, cat)
}

func TestScore_WheelStraight(t *testing.T) {
	hole := [2]card.Card{card.CardSpadeA, card.CardHeart2}
	board := []card.Card{card.CardClub3, card.CardDiamond4, card.CardSpade5, card.CardHeart9, card.CardClubK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.Straight, cat, "ace plays low to complete 5-4-3-2-A")
}

func TestScore_ThreeOfAKind(t *testing.T) {
	hole := [2]card.Card{card.CardSpade7, card.CardHeart7}
	board := []card.Card{card.CardClub7, card.CardDiamond2, card.CardSpade9, card.CardHeartJ, card.CardClubK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.ThreeOfAKind, cat)
}

func TestScore_TwoPair(t *testing.T) {
	hole := [2]card.Card{card.CardSpade7, card.CardHeart7}
	board := []card.Card{card.CardClub9, card.CardDiamond9, card.CardSpade2, card.CardHeartJ, card.CardClubK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.TwoPair, cat)
}

func TestScore_OnePair(t *testing.T) {
	hole := [2]card.Card{card.CardSpade7, card.CardHeart7}
	board := []card.Card{card.CardClub9, card.CardDiamond2, card.CardSpade5, card.CardHeartJ, card.CardClubK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.OnePair, cat)
}

func TestScore_HighCard(t *testing.T) {
	hole := [2]card.Card{card.CardSpade2, card.CardHeart7}
	board := []card.Card{card.CardClub9, card.CardDiamond4, card.CardSpade5, card.CardHeartJ, card.CardClubK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.HighCard, cat)
}

// TestScore_LowerScoreAlwaysWinsAcrossCategories pins the category-ordering
// invariant: any hand of a stronger category scores lower than any hand of
// a weaker category, regardless of kickers, since the category occupies the
// high-order digits of the packed score.
func TestScore_LowerScoreAlwaysWinsAcrossCategories(t *testing.T) {
	// weakest possible flush (low kickers) vs a full house with a low
	// trip and a low pair: the full house must still score lower.
	flushHole := [2]card.Card{card.CardSpade2, card.CardSpade4}
	flushBoard := []card.Card{card.CardSpade6, card.CardSpade8, card.CardSpadeT, card.CardHeart9, card.CardClub3}
	flushScore, flushCat := score(t, flushHole, flushBoard)
	assert.Equal(t, poker.Flush, flushCat)

	fullHouseHole := [2]card.Card{card.CardHeart2, card.CardClub2}
	fullHouseBoard := []card.Card{card.CardDiamond2, card.CardHeart3, card.CardClub3, card.CardSpade9, card.CardHeartK}
	fullHouseScore, fullHouseCat := score(t, fullHouseHole, fullHouseBoard)
	assert.Equal(t, poker.FullHouse, fullHouseCat)

	assert.Less(t, fullHouseScore, flushScore, "a full house always beats a flush regardless of kickers")
}

func TestScore_HigherKickerBreaksTieWithinCategory(t *testing.T) {
	board := []card.Card{card.CardClub4, card.CardDiamond9, card.CardSpade2, card.CardHeartJ, card.CardClubK}

	lowPair := [2]card.Card{card.CardSpade7, card.CardHeart7}
	lowScore, lowCat := score(t, lowPair, board)
	assert.Equal(t, poker.OnePair, lowCat)

	highPair := [2]card.Card{card.CardSpadeA, card.CardHeartA}
	highScore, highCat := score(t, highPair, board)
	assert.Equal(t, poker.OnePair, highCat)

	assert.Less(t, highScore, lowScore, "a higher pair scores lower (better) than a lower pair")
}

func TestScore_PicksBestFiveOfSeven(t *testing.T) {
	// the best 5-card hand is the board's own straight; hole cards are dead.
	hole := [2]card.Card{card.CardClub2, card.CardDiamond7}
	board := []card.Card{card.CardSpade9, card.CardHeartT, card.CardClubJ, card.CardDiamondQ, card.CardSpadeK}

	_, cat := score(t, hole, board)
	assert.Equal(t, poker.Straight, cat)
}
