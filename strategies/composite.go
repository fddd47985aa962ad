package strategies

import (
	"fmt"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// Child pairs a member strategy with its vote weight.
type Child struct {
	Strategy Strategy
	Weight   float64
}

// Composite fans each observation out to member strategies and merges
// their signals by weighted vote. Children that agree (same market key,
// same side) pool weight*strength; the first proposer's signal is
// emitted once the pool reaches the quorum. Groups are kept in
// first-proposed order so output order never depends on map iteration.
type Composite struct {
	children []Child
	quorum   float64
}

func NewComposite(children []Child, quorum float64) (*Composite, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("composite: at least one child strategy is required")
	}
	for i, c := range children {
		if c.Strategy == nil {
			return nil, fmt.Errorf("composite: child %d has no strategy", i)
		}
		if c.Weight <= 0 {
			return nil, fmt.Errorf("composite: child %d (%s) weight must be positive, got %v", i, c.Strategy.Name(), c.Weight)
		}
	}
	if quorum <= 0 {
		return nil, fmt.Errorf("composite: quorum must be positive, got %v", quorum)
	}
	return &Composite{children: children, quorum: quorum}, nil
}

func (s *Composite) Name() string { return "composite" }

func (s *Composite) Reset() {
	for _, c := range s.children {
		c.Strategy.Reset()
	}
}

type voteKey struct {
	market market.Key
	side   market.SignalSide
}

func (s *Composite) GenerateSignals(obs market.AlignedObservation, open []market.Position) []market.Signal {
	type vote struct {
		first market.Signal
		score float64
	}

	var order []voteKey
	votes := make(map[voteKey]*vote)

	for _, c := range s.children {
		for _, sig := range c.Strategy.GenerateSignals(obs, open) {
			k := voteKey{market: sig.Market, side: sig.Side}
			v, seen := votes[k]
			if !seen {
				v = &vote{first: sig}
				votes[k] = v
				order = append(order, k)
			}
			str := sig.Strength
			if str <= 0 {
				str = 1
			}
			v.score += c.Weight * str
		}
	}

	var out []market.Signal
	for _, k := range order {
		v := votes[k]
		if v.score >= s.quorum {
			sig := v.first
			sig.Strength = clampStrength(v.score)
			out = append(out, sig)
		}
	}
	return out
}

func clampStrength(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func init() {
	Register("composite", func(p Params) (Strategy, error) {
		raw, ok := p["children"]
		if !ok {
			return nil, fmt.Errorf("composite: params must include a children list")
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("composite: children must be a list, got %T", raw)
		}

		children := make([]Child, 0, len(items))
		for i, item := range items {
			entry, ok := toParams(item)
			if !ok {
				return nil, fmt.Errorf("composite: child %d must be a mapping, got %T", i, item)
			}
			name := entry.String("name", "")
			if name == "" {
				return nil, fmt.Errorf("composite: child %d is missing a name", i)
			}
			childParams, _ := toParams(entry["params"])
			child, err := New(name, childParams)
			if err != nil {
				return nil, fmt.Errorf("composite: child %d: %w", i, err)
			}
			children = append(children, Child{
				Strategy: child,
				Weight:   entry.Float("weight", 1),
			})
		}

		return NewComposite(children, p.Float("quorum", 1))
	})
}

// toParams normalizes the mapping shapes yaml.v3 and hand-built tests
// produce for nested params.
func toParams(v any) (Params, bool) {
	switch m := v.(type) {
	case nil:
		return Params{}, true
	case Params:
		return m, true
	case map[string]any:
		return Params(m), true
	default:
		return nil, false
	}
}
