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
	"errors"
	"fmt"
)

// Factorization failures fall into three classes. Configuration and shape
// errors are reported before any computation starts. Numerical errors are
// surfaced to the caller instead of propagating NaN or Inf values, and are
// never retried: retrying with the same initialization and regularization is
// futile.
var (
	// ErrConfiguration reports an unrecognized option, an unrecognized init
	// value, a rank out of range or an empty slice sequence.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrShapeMismatch reports a non-square slice or slices of differing
	// dimensions.
	ErrShapeMismatch = errors.New("tensor shape mismatch")
	// ErrNumerical reports a singular or severely ill-conditioned matrix in
	// an inversion, pseudo-inversion or eigendecomposition step.
	ErrNumerical = errors.New("numerical failure")
)

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func shapeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

func numericalErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNumerical, fmt.Sprintf(format, args...))
}
