package prune_test

import (
	"context"
	"fmt"
	"sort"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

func ExampleSolver() {
	start := interval.BoxOf(interval.New(-10, 10), interval.New(-10, 10))
	sys, err := expr.ParseSystem([]string{"x", "y"}, start,
		[]string{"sqr(x) + sqr(y) == 1", "sqr(x - 1) + sqr(y) == 1"}, "")
	if err != nil {
		panic(err)
	}
	solver, err := prune.DefaultSolver(sys, prune.DefaultConfig())
	if err != nil {
		panic(err)
	}
	status, err := solver.Solve(context.Background(), start)
	if err != nil {
		panic(err)
	}

	sols := solver.Solutions()
	sort.Slice(sols, func(i, j int) bool {
		return sols[i].Existence.At(1).Lo() < sols[j].Existence.At(1).Lo()
	})
	fmt.Println(status)
	for _, s := range sols {
		mid := s.Existence.Mid()
		fmt.Printf("x=%.4f y=%.4f\n", mid[0], mid[1])
	}
	// Output:
	// success
	// x=0.5000 y=-0.8660
	// x=0.5000 y=0.8660
}

func ExampleOptimizer() {
	start := interval.BoxOf(interval.New(-10, 10), interval.New(-10, 10))
	sys, err := expr.ParseSystem([]string{"x", "y"}, start, nil, "sqr(x - 1) + sqr(y + 2)")
	if err != nil {
		panic(err)
	}
	opt, err := prune.DefaultOptimizer(sys, prune.NewConfig(prune.WithGaps(1e-3, 1e-6)))
	if err != nil {
		panic(err)
	}
	status, err := opt.Optimize(context.Background(), start)
	if err != nil {
		panic(err)
	}
	pt := opt.LoupPoint()
	fmt.Println(status)
	fmt.Printf("minimum %.3f at (%.2f, %.2f)\n", opt.Loup(), pt[0], pt[1])
	// Output:
	// success
	// minimum 0.000 at (1.00, -2.00)
}
