package experiment

import (
	"context"
	"time"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/metrics"
	"github.com/san-kum/clothsim/internal/sim"
)

// Comparison is one integrator's outcome in a side-by-side run.
type Comparison struct {
	Integrator integrators.Method
	Result     *sim.Result
}

// CompareIntegrators runs base once per method, all in parallel, and
// returns the outcomes in method order with the total wall time.
func CompareIntegrators(ctx context.Context, base *config.Config, methods []integrators.Method) ([]Comparison, time.Duration, error) {
	cloths := make([]*cloth.Cloth, len(methods))
	for i, m := range methods {
		cfg := base.Clone()
		cfg.Integrator = m.String()
		c, err := cfg.Build()
		if err != nil {
			return nil, 0, err
		}
		cloths[i] = c
	}

	ens := sim.NewEnsemble(cloths...)
	for i := 0; i < ens.Len(); i++ {
		for _, m := range metrics.Standard() {
			ens.Member(i).AddMetric(m)
		}
	}

	start := time.Now()
	results, err := ens.Run(ctx, base.RunConfig())
	elapsed := time.Since(start)

	out := make([]Comparison, len(methods))
	for i, m := range methods {
		out[i] = Comparison{Integrator: m}
		if i < len(results) {
			out[i].Result = results[i]
		}
	}
	return out, elapsed, err
}
