package sim

import (
	"context"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Ensemble runs independent cloth instances side by side. Each member has
// its own Simulator, so metrics are not shared between runs.
type Ensemble struct {
	members []*Simulator
}

func NewEnsemble(cloths ...*cloth.Cloth) *Ensemble {
	e := &Ensemble{members: make([]*Simulator, len(cloths))}
	for i, c := range cloths {
		e.members[i] = New(c)
	}
	return e
}

// Member returns the simulator for run i so callers can attach metrics.
func (e *Ensemble) Member(i int) *Simulator { return e.members[i] }
func (e *Ensemble) Len() int                { return len(e.members) }

// Run executes every member with the same config. Results are indexed like
// the members; the first error is returned after all runs finish.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]*Result, len(e.members))
	errs := make([]error, len(e.members))

	dynamo.ParallelFor(len(e.members), 1, func(start, end int) {
		for i := start; i < end; i++ {
			results[i], errs[i] = e.members[i].Run(ctx, cfg)
		}
	})

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
