package optimize

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hubdemarcel/ClimateTrade-sub002/strategies"
)

// Kind classifies how a parameter's values are generated.
type Kind int8

const (
	// Continuous parameters draw float64 values from [Min, Max]; grid
	// search discretizes them by Step.
	Continuous Kind = iota
	// Discrete parameters draw int values from [Min, Max] stepping by
	// Step (1 when Step is zero).
	Discrete
	// Categorical parameters draw from Choices.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// Parameter declares one searchable dimension. The search samples
// parameters; it never mutates them.
type Parameter struct {
	Name string
	Kind Kind

	// Min and Max bound Continuous and Discrete parameters, inclusive.
	Min float64
	Max float64
	// Step discretizes the range for grid search. Required for
	// Continuous parameters under grid; Discrete parameters default
	// to a step of 1.
	Step float64

	// Choices enumerates a Categorical parameter.
	Choices []string
}

// Space is an ordered parameter declaration. Order matters: grid
// enumeration and random draws consume parameters in declaration
// order, which is what makes seeded searches reproducible.
type Space []Parameter

func (s Space) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("optimize: parameter space is empty")
	}
	seen := make(map[string]bool, len(s))
	for i, p := range s {
		if p.Name == "" {
			return fmt.Errorf("optimize: parameter %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("optimize: duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Kind {
		case Continuous, Discrete:
			if p.Max < p.Min {
				return fmt.Errorf("optimize: parameter %q: max %v below min %v", p.Name, p.Max, p.Min)
			}
			if p.Step < 0 {
				return fmt.Errorf("optimize: parameter %q: negative step %v", p.Name, p.Step)
			}
			if len(p.Choices) > 0 {
				return fmt.Errorf("optimize: parameter %q: choices are for categorical parameters", p.Name)
			}
		case Categorical:
			if len(p.Choices) == 0 {
				return fmt.Errorf("optimize: categorical parameter %q has no choices", p.Name)
			}
		default:
			return fmt.Errorf("optimize: parameter %q: unknown kind %v", p.Name, p.Kind)
		}
	}
	return nil
}

// gridValues discretizes one parameter for exhaustive enumeration.
func gridValues(p Parameter) ([]any, error) {
	switch p.Kind {
	case Continuous:
		if p.Step <= 0 {
			return nil, fmt.Errorf("optimize: grid search needs a positive step for continuous parameter %q", p.Name)
		}
		// A hair of slack so Max survives float accumulation.
		n := int(math.Floor((p.Max-p.Min)/p.Step+1e-9)) + 1
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, p.Min+float64(i)*p.Step)
		}
		return out, nil

	case Discrete:
		step := p.Step
		if step == 0 {
			step = 1
		}
		n := int(math.Floor((p.Max-p.Min)/step+1e-9)) + 1
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, int(math.Round(p.Min+float64(i)*step)))
		}
		return out, nil

	case Categorical:
		out := make([]any, len(p.Choices))
		for i, c := range p.Choices {
			out[i] = c
		}
		return out, nil

	default:
		return nil, fmt.Errorf("optimize: parameter %q: unknown kind %v", p.Name, p.Kind)
	}
}

// sample draws one value. Every draw consumes the rng in a fixed
// pattern per kind, so a seeded search replays identically.
func sample(p Parameter, rng *rand.Rand) any {
	switch p.Kind {
	case Continuous:
		return p.Min + rng.Float64()*(p.Max-p.Min)
	case Discrete:
		lo, hi := int(math.Round(p.Min)), int(math.Round(p.Max))
		if hi <= lo {
			return lo
		}
		return lo + rng.Intn(hi-lo+1)
	default:
		return p.Choices[rng.Intn(len(p.Choices))]
	}
}

// sampleParams draws a full candidate in declaration order.
func sampleParams(s Space, rng *rand.Rand) strategies.Params {
	params := make(strategies.Params, len(s))
	for _, p := range s {
		params[p.Name] = sample(p, rng)
	}
	return params
}

// gridCandidates enumerates the cartesian product in declaration
// order, the last parameter varying fastest, truncated at max.
func gridCandidates(s Space, max int) ([]strategies.Params, error) {
	values := make([][]any, len(s))
	for i, p := range s {
		vs, err := gridValues(p)
		if err != nil {
			return nil, err
		}
		values[i] = vs
	}

	var out []strategies.Params
	idx := make([]int, len(s))
	for {
		params := make(strategies.Params, len(s))
		for j, p := range s {
			params[p.Name] = values[j][idx[j]]
		}
		out = append(out, params)
		if len(out) == max {
			return out, nil
		}

		j := len(idx) - 1
		for ; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(values[j]) {
				break
			}
			idx[j] = 0
		}
		if j < 0 {
			return out, nil
		}
	}
}
