package poker

import "riverdeal/card"

// estimateHandStrength runs strengthSamples Monte Carlo rollouts of the
// remaining deck to estimate how often hand beats a random opponent hand
// given the current board, using strengthRNG (never the dealing RNG).
func (e *Engine) estimateHandStrength(hand []card.Card) (label string, pct float64, categoryProbs map[string]float64) {
	remaining := e.remainingCards(hand)
	boardNeeded := 5 - len(e.board)

	wins, ties, total := 0, 0, 0
	categoryCounts := make(map[HandCategory]int)

	for i := 0; i < e.strengthSamples; i++ {
		shuffled := append([]card.Card{}, remaining...)
		e.strengthRNG.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if len(shuffled) < boardNeeded+2 {
			break
		}
		board := append(append([]card.Card{}, e.board...), shuffled[:boardNeeded]...)
		oppHole := shuffled[boardNeeded : boardNeeded+2]

		myScore, myCategory := e.eval.Score([2]card.Card{hand[0], hand[1]}, board)
		oppScore, _ := e.eval.Score([2]card.Card{oppHole[0], oppHole[1]}, board)

		switch {
		case myScore < oppScore:
			wins++
		case myScore == oppScore:
			ties++
		}
		categoryCounts[myCategory]++
		total++
	}

	if total == 0 {
		return "unknown", 0, nil
	}

	pct = (float64(wins) + 0.5*float64(ties)) / float64(total) * 100
	categoryProbs = make(map[string]float64, len(categoryCounts))
	best := HighCard
	bestCount := -1
	for cat, count := range categoryCounts {
		categoryProbs[cat.String()] = float64(count) / float64(total)
		if count > bestCount {
			bestCount = count
			best = cat
		}
	}
	return best.String(), pct, categoryProbs
}

func (e *Engine) remainingCards(exclude []card.Card) []card.Card {
	used := make(map[card.Card]bool)
	for _, c := range exclude {
		used[c] = true
	}
	for _, c := range e.board {
		used[c] = true
	}
	for _, hole := range e.holeCards {
		for _, c := range hole {
			used[c] = true
		}
	}
	var out []card.Card
	for _, c := range card.FullDeck() {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}
