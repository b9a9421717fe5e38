// Package policy implements the pluggable decision-making consumed by
// the turn orchestrator for AI-controlled seats: a uniform-random
// reference policy, a bucketed-infoset strategy-table policy, and an NPC
// personality layer that wraps either with decision noise.
package policy

import (
	"math/rand"

	"riverdeal/internal/poker"
)

// Policy maps an observation and its legal actions to a chosen Action.
// This mirrors moonhole-HoldemIJ's npc.BrainDecider interface shape.
type Policy interface {
	Decide(obs poker.AIObservation) poker.Action
}

// Uniform is the reference policy: uniform-random over legal actions,
// with a uniform-random raise target in [minRaiseTo, maxRaiseTo].
type Uniform struct {
	RNG *rand.Rand
}

// NewUniform builds a Uniform policy seeded deterministically.
func NewUniform(seed int64) *Uniform {
	return &Uniform{RNG: rand.New(rand.NewSource(seed))}
}

func (u *Uniform) Decide(obs poker.AIObservation) poker.Action {
	if len(obs.LegalActions) == 0 {
		return poker.Action{Kind: poker.ActionFold}
	}
	kind := obs.LegalActions[u.RNG.Intn(len(obs.LegalActions))]
	if kind != poker.ActionRaise {
		return poker.Action{Kind: kind}
	}
	lo, hi := obs.MinRaiseTo, obs.MaxRaiseTo
	if hi <= lo {
		return poker.Action{Kind: poker.ActionRaise, Amount: hi}
	}
	amount := lo + u.RNG.Intn(hi-lo+1)
	return poker.Action{Kind: poker.ActionRaise, Amount: amount}
}

// Fallback is the deterministic first-legal-of fallback used by the
// orchestrator when a Policy panics or returns an illegal action: check,
// then call, then fold, then raise(minRaiseTo).
func Fallback(obs poker.AIObservation) poker.Action {
	has := func(k poker.ActionKind) bool {
		for _, a := range obs.LegalActions {
			if a == k {
				return true
			}
		}
		return false
	}
	switch {
	case has(poker.ActionCheck):
		return poker.Action{Kind: poker.ActionCheck}
	case has(poker.ActionCall):
		return poker.Action{Kind: poker.ActionCall}
	case has(poker.ActionFold):
		return poker.Action{Kind: poker.ActionFold}
	case has(poker.ActionRaise):
		return poker.Action{Kind: poker.ActionRaise, Amount: obs.MinRaiseTo}
	default:
		return poker.Action{Kind: poker.ActionFold}
	}
}
