// Copyright 2025 rescal Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rescal

import (
	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/rescal-io/rescal/base/log"
	"github.com/rescal-io/rescal/base/parallel"
)

// FactorizeWithRestarts restarts the factorization multiple times from
// independent random initializations and returns the run with the lowest
// objective. Each restart owns its factor matrices, fit history and timings;
// the input slices are shared read-only. Restarts run on config.Jobs workers,
// results are joined after all restarts complete, and ties are broken by the
// lowest restart index regardless of completion order. A failed restart never
// aborts its siblings: the best successful run wins, and an error is returned
// only if every restart failed.
func FactorizeWithRestarts(slices []Slice, rank, restarts int, params Params, config *FitConfig) (*Result, error) {
	config = config.LoadDefaultIfNil()
	if restarts < 1 {
		return nil, configErrorf("restarts must be positive, got %d", restarts)
	}
	if err := params.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	seed := params.GetInt64(RandomState, 0)
	results := make([]*Result, restarts)
	runErrs := make([]error, restarts)
	finished := atomic.NewInt32(0)
	err := parallel.Parallel(restarts, config.Jobs, func(_, jobId int) error {
		// Each restart draws from its own seed so that runs explore
		// different basins of attraction.
		runParams := params.Overwrite(Params{
			Init:        InitRandom,
			RandomState: seed + int64(jobId),
		})
		result, err := Factorize(slices, rank, runParams, NewFitConfig().SetVerbose(config.Verbose))
		results[jobId] = result
		runErrs[jobId] = err
		if err != nil {
			log.Logger().Error("restart failed",
				zap.Int("restart", jobId), zap.Error(err))
			return nil
		}
		log.Logger().Info("restart finished",
			zap.Int("restart", jobId),
			zap.Int32("finished", finished.Inc()), zap.Int("restarts", restarts),
			zap.Float64("objective", result.Objective),
			zap.Int("iterations", result.Iterations))
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return selectBest(results, runErrs)
}

// selectBest picks the successful run with the lowest objective. Ties resolve
// to the first encountered, i.e. the lowest restart index.
func selectBest(results []*Result, runErrs []error) (*Result, error) {
	var best *Result
	for _, result := range results {
		if result == nil {
			continue
		}
		if best == nil || result.Objective < best.Objective {
			best = result
		}
	}
	if best != nil {
		return best, nil
	}
	for _, err := range runErrs {
		if err != nil {
			return nil, errors.Annotatef(err, "all %d restarts failed", len(results))
		}
	}
	return nil, configErrorf("no restarts were run")
}
