// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package valuation prices products by Monte-Carlo simulation and computes
// their risk by adjoint differentiation.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/probechain/quantscript/aad"
	"github.com/probechain/quantscript/lang/eval"
	"github.com/probechain/quantscript/model"
	"github.com/probechain/quantscript/product"
)

// BatchSize is the number of paths drawn from one random stream. Batch b
// uses seed Seed+b, so results do not depend on the number of workers.
const BatchSize = 1024

var (
	// ErrNoPaths is returned when asked for a non-positive path count.
	ErrNoPaths = errors.New("valuation: path count must be positive")

	// ErrDefinitions is returned when the definition values do not match
	// the product's definitions.
	ErrDefinitions = errors.New("valuation: definition count mismatch")

	// ErrEvaluationFailed wraps a script that broke an evaluator contract.
	ErrEvaluationFailed = errors.New("valuation: evaluation failed")
)

// Config controls a simulation.
type Config struct {
	Paths   int
	Seed    int64
	Workers int // 0 means one per CPU
}

// Defaults is the simulation used when none is configured.
var Defaults = Config{
	Paths:   100000,
	Seed:    1234,
	Workers: 0,
}

// Result is the Monte-Carlo estimate of every product variable at maturity.
type Result struct {
	RunID   uuid.UUID
	Paths   int
	Names   []string  // variable names, by slot
	Values  []float64 // path average, by slot
	StdErrs []float64 // standard error of the average, by slot
}

// Value returns the value of name, and whether the product has it.
func (r *Result) Value(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// job holds what every worker shares.
type job struct {
	prod  *product.Product
	model *model.BlackScholes
	mcfg  model.Config
	cfg   Config
	defs  []float64
	id    uuid.UUID
	log   log.Logger
}

func newJob(p *product.Product, mcfg model.Config, cfg Config, defs []float64) (*job, error) {
	if cfg.Paths <= 0 {
		return nil, ErrNoPaths
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if err := mcfg.Validate(); err != nil {
		return nil, err
	}
	if n := len(p.DefinitionNames()); n != len(defs) {
		return nil, fmt.Errorf("%w: product reads %d, got %d", ErrDefinitions, n, len(defs))
	}
	m, err := model.NewBlackScholes(mcfg.Today, p.EventDates())
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	return &job{
		prod:  p,
		model: m,
		mcfg:  mcfg,
		cfg:   cfg,
		defs:  defs,
		id:    id,
		log:   log.New("module", "valuation", "run", id),
	}, nil
}

func (j *job) batches() int {
	return (j.cfg.Paths + BatchSize - 1) / BatchSize
}

// batch returns the path range of batch b.
func (j *job) batch(b int) (int, int) {
	lo := b * BatchSize
	hi := lo + BatchSize
	if hi > j.cfg.Paths {
		hi = j.cfg.Paths
	}
	return lo, hi
}

// run hands every batch to exactly one call of work, spread over the
// configured workers. newWorker is called once per worker.
func (j *job) run(ctx context.Context, newWorker func() func(b int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for b := 0; b < j.batches(); b++ {
			select {
			case next <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	workers := j.cfg.Workers
	if n := j.batches(); workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		work := newWorker()
		g.Go(func() error {
			for b := range next {
				if err := work(b); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// protect turns an evaluator contract violation into an error.
func protect(err *error) {
	if r := recover(); r != nil {
		cerr, ok := r.(*eval.ContractError)
		if !ok {
			panic(r)
		}
		*err = fmt.Errorf("%w: %v", ErrEvaluationFailed, cerr)
	}
}

// Value simulates cfg.Paths paths of the model and averages the product's
// variables over them. defs holds the definition values, ordered as
// p.DefinitionNames().
func Value(ctx context.Context, p *product.Product, mcfg model.Config, cfg Config, defs []float64) (*Result, error) {
	j, err := newJob(p, mcfg, cfg, defs)
	if err != nil {
		return nil, err
	}
	names := p.VarNames()
	samples := make([][]float64, len(names))
	for i := range samples {
		samples[i] = make([]float64, j.cfg.Paths)
	}
	j.log.Debug("Starting valuation", "paths", j.cfg.Paths, "workers", j.cfg.Workers, "events", len(p.Events()))

	params := model.Params[float64]{Spot: mcfg.Spot, Vol: mcfg.Vol, Rate: mcfg.Rate}
	err = j.run(ctx, func() func(int) error {
		e := product.NewEvaluator[float64](p, aad.Float{})
		e.SetDefinitions(defs)
		scen := product.NewScenario[float64](p)
		gauss := make([]float64, j.model.Dimension())
		return func(b int) (err error) {
			defer protect(&err)
			rng := model.NewGaussian(j.cfg.Seed + int64(b))
			lo, hi := j.batch(b)
			for path := lo; path < hi; path++ {
				rng.Fill(gauss)
				model.Simulate[float64](j.model, aad.Float{}, params, gauss, scen)
				e.Init()
				product.Evaluate(p, e, scen)
				for slot := range samples {
					samples[slot][path] = e.Value(slot)
				}
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:   j.id,
		Paths:   j.cfg.Paths,
		Names:   names,
		Values:  make([]float64, len(names)),
		StdErrs: make([]float64, len(names)),
	}
	for slot, xs := range samples {
		res.Values[slot], res.StdErrs[slot] = meanStdErr(xs)
	}
	j.log.Debug("Valuation done", "variables", len(names))
	return res, nil
}

func meanStdErr(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return mean, std / math.Sqrt(float64(len(xs)))
}
