package optim

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/experiment"
)

// Trial is one point of the grid.
type Trial struct {
	Params   map[string]float64
	Value    float64
	Unstable bool
	Err      error
}

// GridSearch evaluates every combination of named config parameters.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Minimize selects the lowest metric value as best; otherwise the
	// highest wins.
	Minimize bool
	// SkipUnstable excludes runs that recorded an instability from Best.
	SkipUnstable bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d params but %d ranges: %w", len(params), len(ranges), dynamo.ErrInvalidConfig)
	}
	probe := config.DefaultConfig()
	for i, name := range params {
		if _, err := probe.Param(name); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s: %w", name, dynamo.ErrInvalidConfig)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, Minimize: true}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base with each grid point applied and scores the named
// metric. Trials come back in grid order; best is -1 when no trial
// qualified.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Trial, int, error) {
	trials := make([]Trial, 0, g.Size())
	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &trials)
	return trials, g.best(trials), err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
	}

	if depth == len(g.paramNames) {
		*trials = append(*trials, g.evaluate(ctx, maps.Clone(current), base, metricName))
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, metricName, trials); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, metricName string) Trial {
	t := Trial{Params: params, Value: math.NaN()}

	cfg := base.Clone()
	for _, name := range g.paramNames {
		if err := cfg.SetParam(name, params[name]); err != nil {
			t.Err = err
			return t
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Err = err
		return t
	}

	exp := experiment.New("sweep", cfg)
	if err := exp.Setup(); err != nil {
		t.Err = err
		return t
	}
	result, err := exp.Run(ctx)
	if err != nil {
		t.Err = err
		return t
	}
	if err := result.Err(); err != nil {
		t.Err = err
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		t.Err = fmt.Errorf("unknown metric %q: %w", metricName, dynamo.ErrInvalidConfig)
		return t
	}
	t.Value = val
	t.Unstable = result.Unstable()
	return t
}

func (g *GridSearch) best(trials []Trial) int {
	best := -1
	for i, t := range trials {
		if t.Err != nil || math.IsNaN(t.Value) || (g.SkipUnstable && t.Unstable) {
			continue
		}
		if best < 0 ||
			(g.Minimize && t.Value < trials[best].Value) ||
			(!g.Minimize && t.Value > trials[best].Value) {
			best = i
		}
	}
	return best
}
