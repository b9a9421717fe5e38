// Package eval provides a self-contained reference implementation of the
// poker.Evaluator interface: given 2 hole cards and up to 5 board cards,
// it returns an integer score (lower wins) and a coarse hand category.
//
// There is no dependency on any precomputed lookup table: every 5-card
// subset of the 7 available cards is classified directly from its rank
// multiset and suit pattern, and the best (lowest-scoring) subset wins.
package eval

import (
	"sort"

	"riverdeal/card"
	"riverdeal/internal/poker"
)

// SevenCardEvaluator is the reference poker.Evaluator.
type SevenCardEvaluator struct{}

// New returns a ready-to-use SevenCardEvaluator.
func New() *SevenCardEvaluator { return &SevenCardEvaluator{} }

// Score implements poker.Evaluator.
func (SevenCardEvaluator) Score(hole [2]card.Card, board []card.Card) (int, poker.HandCategory) {
	cards := make([]card.Card, 0, 7)
	cards = append(cards, hole[0], hole[1])
	cards = append(cards, board...)

	bestScore := -1
	var bestCategory poker.HandCategory
	for _, combo := range combinations5(cards) {
		score, category := scoreFive(combo)
		if bestScore == -1 || score < bestScore {
			bestScore = score
			bestCategory = category
		}
	}
	return bestScore, bestCategory
}

// combinations5 returns every 5-card subset of cards (C(n,5); n is 5 or
// 7 in practice).
func combinations5(cards []card.Card) [][5]card.Card {
	n := len(cards)
	if n < 5 {
		return nil
	}
	var out [][5]card.Card
	idx := []int{0, 1, 2, 3, 4}
	for {
		var combo [5]card.Card
		for i, j := range idx {
			combo[i] = cards[j]
		}
		out = append(out, combo)

		i := 4
		for i >= 0 && idx[i] == n-5+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < 5; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

// scoreFive classifies exactly 5 cards. Lower score always wins; the
// category occupies the highest digits so that a straight flush always
// beats a lower-category hand's score regardless of kickers.
func scoreFive(cards [5]card.Card) (int, poker.HandCategory) {
	ranks := make([]int, 5)
	suits := make([]card.Suit, 5)
	for i, c := range cards {
		ranks[i] = rankValue(c)
		suits[i] = c.Suit()
	}

	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	flush := allSameSuit(suits)
	straightHigh, isStraight := straightHighCard(ranks)

	groups := groupByCount(counts)

	var category poker.HandCategory
	var tiebreak []int

	switch {
	case isStraight && flush:
		category = poker.StraightFlush
		tiebreak = []int{straightHigh}
	case groups[0].count == 4:
		category = poker.FourOfAKind
		tiebreak = []int{groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		category = poker.FullHouse
		tiebreak = []int{groups[0].rank, groups[1].rank}
	case flush:
		category = poker.Flush
		tiebreak = descending(ranks)
	case isStraight:
		category = poker.Straight
		tiebreak = []int{straightHigh}
	case groups[0].count == 3:
		category = poker.ThreeOfAKind
		tiebreak = append([]int{groups[0].rank}, kickersExcluding(ranks, groups[0].rank)...)
	case groups[0].count == 2 && groups[1].count == 2:
		hi, lo := groups[0].rank, groups[1].rank
		if hi < lo {
			hi, lo = lo, hi
		}
		kicker := kickersExcluding(ranks, groups[0].rank, groups[1].rank)
		category = poker.TwoPair
		tiebreak = append([]int{hi, lo}, kicker...)
	case groups[0].count == 2:
		category = poker.OnePair
		tiebreak = append([]int{groups[0].rank}, kickersExcluding(ranks, groups[0].rank)...)
	default:
		category = poker.HighCard
		tiebreak = descending(ranks)
	}

	// Lower score always wins. Invert the category so a stronger category
	// (higher poker.HandCategory value) produces a smaller base, then pack
	// tiebreaks (also inverted) into the low digits base-15 so they only
	// ever break ties within the same category. Every category packs
	// exactly five tiebreak digits (missing ones are 0), so the category
	// digit always sits at the same weight.
	score := int(poker.StraightFlush) - int(category)
	for i := 0; i < 5; i++ {
		digit := 0
		if i < len(tiebreak) {
			digit = 14 - tiebreak[i]
		}
		score = score*15 + digit
	}
	return score, category
}

func rankValue(c card.Card) int {
	v := c.HandRealVal() // A=14
	return v
}

func allSameSuit(suits []card.Suit) bool {
	for _, s := range suits[1:] {
		if s != suits[0] {
			return false
		}
	}
	return true
}

// straightHighCard reports the high card of a straight among ranks
// (treating ace as both 14 and, for the wheel, 1), or false if none.
func straightHighCard(ranks []int) (int, bool) {
	uniq := map[int]bool{}
	for _, r := range ranks {
		uniq[r] = true
	}
	if len(uniq) != 5 {
		return 0, false
	}
	sorted := make([]int, 0, 5)
	for r := range uniq {
		sorted = append(sorted, r)
	}
	sort.Ints(sorted)

	if sorted[4]-sorted[0] == 4 {
		return sorted[4], true
	}
	// wheel: A-2-3-4-5
	if sorted[0] == 2 && sorted[1] == 3 && sorted[2] == 4 && sorted[3] == 5 && sorted[4] == 14 {
		return 5, true
	}
	return 0, false
}

type rankGroup struct {
	rank  int
	count int
}

// groupByCount returns rank groups sorted by count desc, then rank desc.
func groupByCount(counts map[int]int) []rankGroup {
	groups := make([]rankGroup, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, rankGroup{rank: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	// pad so callers can always index [0] and [1]
	for len(groups) < 2 {
		groups = append(groups, rankGroup{})
	}
	return groups
}

func descending(ranks []int) []int {
	out := append([]int{}, ranks...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func kickersExcluding(ranks []int, exclude ...int) []int {
	skip := map[int]int{}
	for _, e := range exclude {
		skip[e]++
	}
	var out []int
	for _, r := range ranks {
		if skip[r] > 0 {
			skip[r]--
			continue
		}
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
