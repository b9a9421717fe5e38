package poker

import "sort"

// SidePot is one layer of the pot: an amount and the seats eligible to
// win it (the non-folded seats that contributed at least this layer's
// threshold).
type SidePot struct {
	Amount    int
	Eligible  []SeatId
}

// sidePots layers the hand's total contributions into side pots, the way
// moonhole-HoldemIJ's potManager does: sort seats by total contribution,
// and carve off one layer per distinct contribution level, each owned by
// the seats that contributed at least that much and never folded.
func (b *BettingState) sidePots() []SidePot {
	type entry struct {
		seat SeatId
		amt  int
	}
	entries := make([]entry, 0, len(b.Players))
	for _, s := range b.Players {
		if amt := b.TotalContributed[s]; amt > 0 {
			entries = append(entries, entry{seat: s, amt: amt})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].amt < entries[j].amt })

	var pots []SidePot
	prevLevel := 0
	for i := range entries {
		level := entries[i].amt
		if level == prevLevel {
			continue
		}
		layer := level - prevLevel
		var amount int
		var eligible []SeatId
		for j := i; j < len(entries); j++ {
			amount += layer
			if !b.FoldedPlayers[entries[j].seat] {
				eligible = append(eligible, entries[j].seat)
			}
		}
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		prevLevel = level
	}
	return pots
}
