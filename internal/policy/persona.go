package policy

import (
	"encoding/json"
	"math/rand"
	"os"

	"riverdeal/internal/poker"
)

// PersonalityProfile tunes how an NPC persona perturbs a base Policy's
// decision, mirroring moonhole-HoldemIJ's npc.PersonalityProfile.
type PersonalityProfile struct {
	Aggression float64 `json:"aggression"`
	Tightness  float64 `json:"tightness"`
	Bluffing   float64 `json:"bluffing"`
	Positional float64 `json:"positional"`
	Randomness float64 `json:"randomness"`
}

// Persona is a named NPC character wrapping a base Policy.
type Persona struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Tagline string             `json:"tagline"`
	Profile PersonalityProfile `json:"profile"`
}

// Registry is a JSON-file-loaded set of personas, keyed by ID.
type Registry struct {
	personas map[string]Persona
}

// DefaultPersonas is shipped so the NPC layer works with no config file.
func DefaultPersonas() []Persona {
	return []Persona{
		{ID: "rock", Name: "The Rock", Tagline: "folds anything but the nuts",
			Profile: PersonalityProfile{Aggression: 0.2, Tightness: 0.9, Bluffing: 0.05, Positional: 0.3, Randomness: 0.1}},
		{ID: "maniac", Name: "The Maniac", Tagline: "raises everything",
			Profile: PersonalityProfile{Aggression: 0.9, Tightness: 0.2, Bluffing: 0.6, Positional: 0.2, Randomness: 0.3}},
		{ID: "regular", Name: "The Regular", Tagline: "plays it straight",
			Profile: PersonalityProfile{Aggression: 0.5, Tightness: 0.5, Bluffing: 0.2, Positional: 0.5, Randomness: 0.2}},
	}
}

// NewRegistry builds a Registry from the default personas.
func NewRegistry() *Registry {
	r := &Registry{personas: map[string]Persona{}}
	for _, p := range DefaultPersonas() {
		r.personas[p.ID] = p
	}
	return r
}

// LoadFromFile merges personas from a JSON array file into the registry,
// overriding any default with a matching ID.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return err
	}
	for _, p := range personas {
		r.personas[p.ID] = p
	}
	return nil
}

// Get returns the persona for id and whether it was found.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.personas[id]
	return p, ok
}

// All returns every registered persona.
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	return out
}

// PersonaPolicy wraps a base Policy (uniform or strategy-table) with a
// PersonalityProfile: it perturbs the action the base policy picked
// toward the persona's aggression/tightness/bluffing biases and applies
// Randomness as a chance to ignore the base choice entirely in favor of
// a uniform-random one.
type PersonaPolicy struct {
	Base    Policy
	Profile PersonalityProfile
	RNG     *rand.Rand
}

// NewPersonaPolicy wraps base with profile, seeded deterministically.
func NewPersonaPolicy(base Policy, profile PersonalityProfile, seed int64) *PersonaPolicy {
	return &PersonaPolicy{Base: base, Profile: profile, RNG: rand.New(rand.NewSource(seed))}
}

func (p *PersonaPolicy) Decide(obs poker.AIObservation) poker.Action {
	if p.RNG.Float64() < p.Profile.Randomness {
		return NewUniform(p.RNG.Int63()).Decide(obs)
	}

	action := p.Base.Decide(obs)

	if action.Kind == poker.ActionCheck && p.hasRaise(obs) && p.RNG.Float64() < p.Profile.Aggression*0.5 {
		return poker.Action{Kind: poker.ActionRaise, Amount: obs.MinRaiseTo}
	}
	if action.Kind == poker.ActionFold && obs.ToCall > 0 && p.RNG.Float64() < p.Profile.Bluffing*0.3 {
		if p.hasRaise(obs) {
			return poker.Action{Kind: poker.ActionRaise, Amount: obs.MinRaiseTo}
		}
		return poker.Action{Kind: poker.ActionCall}
	}
	if action.Kind == poker.ActionRaise && p.Profile.Tightness > 0.7 && p.RNG.Float64() < p.Profile.Tightness*0.4 {
		return poker.Action{Kind: poker.ActionCall}
	}
	return action
}

func (p *PersonaPolicy) hasRaise(obs poker.AIObservation) bool {
	for _, a := range obs.LegalActions {
		if a == poker.ActionRaise {
			return true
		}
	}
	return false
}
