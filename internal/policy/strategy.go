package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"riverdeal/internal/poker"
)

// StrategyRow is the weighted action-probability row stored per infoset
// bucket, parallel to the fixed action order {check, call, fold, raise}.
type StrategyRow struct {
	Check float64 `json:"check"`
	Call  float64 `json:"call"`
	Fold  float64 `json:"fold"`
	Raise float64 `json:"raise"`
}

// Strategy is a bucketed-infoset policy backed by an LRU cache in front
// of a JSON-loaded lookup table. It falls back to Uniform on any miss,
// matching spec behavior for an untrained/empty table.
type Strategy struct {
	table    map[string]StrategyRow
	cache    *lru.Cache[string, StrategyRow]
	fallback *Uniform
}

// LoadStrategyTable reads a JSON object of bucket-id -> StrategyRow from
// path. An empty path yields an empty table (pure fallback to
// uniform-random), which is the shipped default absent AI_STRATEGY_PATH;
// a path that cannot be read or parsed is an error.
func LoadStrategyTable(path string, seed int64) (*Strategy, error) {
	cache, err := lru.New[string, StrategyRow](4096)
	if err != nil {
		return nil, fmt.Errorf("policy: building strategy cache: %w", err)
	}
	s := &Strategy{table: map[string]StrategyRow{}, cache: cache, fallback: NewUniform(seed)}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: reading strategy table %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.table); err != nil {
		return nil, fmt.Errorf("policy: parsing strategy table %s: %w", path, err)
	}
	return s, nil
}

// Decide looks up the bucketed infoset for obs; on a table/cache miss it
// defers to uniform-random.
func (s *Strategy) Decide(obs poker.AIObservation) poker.Action {
	key := InfosetKey(obs)
	if row, ok := s.cache.Get(key); ok {
		return s.sampleRow(row, obs)
	}
	if row, ok := s.table[key]; ok {
		s.cache.Add(key, row)
		return s.sampleRow(row, obs)
	}
	return s.fallback.Decide(obs)
}

func (s *Strategy) sampleRow(row StrategyRow, obs poker.AIObservation) poker.Action {
	weights := map[poker.ActionKind]float64{
		poker.ActionCheck: row.Check,
		poker.ActionCall:  row.Call,
		poker.ActionFold:  row.Fold,
		poker.ActionRaise: row.Raise,
	}
	var total float64
	legal := make([]poker.ActionKind, 0, len(obs.LegalActions))
	for _, a := range obs.LegalActions {
		if w := weights[a]; w > 0 {
			legal = append(legal, a)
			total += w
		}
	}
	if total <= 0 {
		return s.fallback.Decide(obs)
	}
	r := s.fallback.RNG.Float64() * total
	var cum float64
	chosen := legal[len(legal)-1]
	for _, a := range legal {
		cum += weights[a]
		if r <= cum {
			chosen = a
			break
		}
	}
	if chosen != poker.ActionRaise {
		return poker.Action{Kind: chosen}
	}
	lo, hi := obs.MinRaiseTo, obs.MaxRaiseTo
	if hi <= lo {
		return poker.Action{Kind: poker.ActionRaise, Amount: hi}
	}
	return poker.Action{Kind: poker.ActionRaise, Amount: lo + s.fallback.RNG.Intn(hi-lo+1)}
}

// InfosetKey buckets an observation into a string key: hole-card bucket x
// board-texture bucket x recent-action-pattern x pot-odds bucket.
func InfosetKey(obs poker.AIObservation) string {
	return strings.Join([]string{
		holeBucket(obs),
		boardTextureBucket(obs),
		actionPatternBucket(obs),
		potOddsBucket(obs),
	}, "|")
}

func holeBucket(obs poker.AIObservation) string {
	if len(obs.HoleCards) != 2 {
		return "none"
	}
	r1, r2 := obs.HoleCards[0].HandRealVal(), obs.HoleCards[1].HandRealVal()
	if r1 < r2 {
		r1, r2 = r2, r1
	}
	suited := obs.HoleCards[0].Suit() == obs.HoleCards[1].Suit()
	if r1 == r2 {
		return fmt.Sprintf("pair%d", r1)
	}
	if suited {
		return fmt.Sprintf("%d%ds", r1, r2)
	}
	return fmt.Sprintf("%d%do", r1, r2)
}

func boardTextureBucket(obs poker.AIObservation) string {
	if len(obs.Board) == 0 {
		return "pre"
	}
	suitCounts := map[byte]int{}
	for _, c := range obs.Board {
		suitCounts[byte(c.Suit())]++
	}
	monotone := false
	for _, n := range suitCounts {
		if n >= 3 {
			monotone = true
		}
	}
	if monotone {
		return fmt.Sprintf("flushy%d", len(obs.Board))
	}
	return fmt.Sprintf("dry%d", len(obs.Board))
}

func actionPatternBucket(obs poker.AIObservation) string {
	n := len(obs.ActionHistory)
	tail := obs.ActionHistory
	if n > 3 {
		tail = tail[n-3:]
	}
	var sb strings.Builder
	for _, a := range tail {
		sb.WriteByte(a.Action.Kind.String()[0])
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

func potOddsBucket(obs poker.AIObservation) string {
	if obs.ToCall == 0 {
		return "free"
	}
	ratio := float64(obs.ToCall) / float64(obs.Pot+obs.ToCall)
	switch {
	case ratio < 0.15:
		return "cheap"
	case ratio < 0.35:
		return "fair"
	default:
		return "steep"
	}
}
