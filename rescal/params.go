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
	"reflect"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/rescal-io/rescal/base/log"
)

/* ParamName */

// ParamName is the type of factorization option names.
type ParamName string

// Predefined option names
const (
	Init        ParamName = "Init"        // initialization method of the factor matrix
	Proj        ParamName = "Proj"        // project slices through a QR basis before the core solve
	MaxIter     ParamName = "MaxIter"     // maximum number of ALS iterations
	Conv        ParamName = "Conv"        // convergence threshold on the fit change
	Lmbda       ParamName = "Lmbda"       // regularization strength
	RandomState ParamName = "RandomState" // random state (seed)
)

// Recognized values for the Init option.
const (
	InitNVecs  = "nvecs"
	InitRandom = "random"
)

// Default option values.
const (
	defaultInit    = InitNVecs
	defaultProj    = true
	defaultMaxIter = 500
	defaultConv    = 1e-5
	defaultLmbda   = 0.0
)

var knownParamNames = mapset.NewSet(Init, Proj, MaxIter, Conv, Lmbda, RandomState)

// Params stores options for a factorization. It is a map between names and
// values. For example, options for a regularized factorization are given by:
//
//	rescal.Params{
//		rescal.Lmbda:   0.1,
//		rescal.MaxIter: 100,
//	}
type Params map[ParamName]interface{}

// Copy options.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets an integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		default:
			log.Logger().Error("failed to get int parameter",
				zap.String("name", string(name)), zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetInt64 gets an int64 parameter by name. Returns _default if not exists or type doesn't match.
// The type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("failed to get int64 parameter",
				zap.String("name", string(name)), zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetBool gets a bool parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetBool(name ParamName, _default bool) bool {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case bool:
			return val
		default:
			log.Logger().Error("failed to get bool parameter",
				zap.String("name", string(name)), zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetFloat64 gets a float64 parameter by name. Returns _default if not exists or type doesn't
// match. The type will be converted if given int.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		default:
			log.Logger().Error("failed to get float64 parameter",
				zap.String("name", string(name)), zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetString gets a string parameter. Returns _default if not exists or type doesn't match.
func (parameters Params) GetString(name ParamName, _default string) string {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case string:
			return val
		default:
			log.Logger().Error("failed to get string parameter",
				zap.String("name", string(name)), zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// Overwrite returns a copy of the options with params merged on top.
func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// Validate rejects unrecognized option names and out-of-range values. It is
// called by the factorization entry points before any computation starts.
func (parameters Params) Validate() error {
	var unknown []string
	for name := range parameters {
		if !knownParamNames.Contains(name) {
			unknown = append(unknown, string(name))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return configErrorf("unknown options (%s)", strings.Join(unknown, ", "))
	}
	if init := parameters.GetString(Init, defaultInit); init != InitNVecs && init != InitRandom {
		return configErrorf("unknown init option %q", init)
	}
	if lmbda := parameters.GetFloat64(Lmbda, defaultLmbda); lmbda < 0 {
		return configErrorf("regularization must be non-negative, got %v", lmbda)
	}
	if maxIter := parameters.GetInt(MaxIter, defaultMaxIter); maxIter < 1 {
		return configErrorf("maximum iterations must be positive, got %d", maxIter)
	}
	if conv := parameters.GetFloat64(Conv, defaultConv); conv <= 0 {
		return configErrorf("convergence threshold must be positive, got %v", conv)
	}
	return nil
}
