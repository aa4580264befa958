// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import "errors"

var (
	// ErrHistoryExhausted reports an append beyond the history capacity.
	// The capacity is sized by the caller, so this is a configuration error.
	ErrHistoryExhausted = errors.New("pounders: history capacity exhausted")

	// ErrNumericalConsistency reports a singular interpolation system in the fitter.
	// It can only happen when the poisedness guard of the interpolation set was bypassed.
	ErrNumericalConsistency = errors.New("pounders: singular interpolation system")

	// ErrCriterionHalt reports a panic raised by the criterion.
	ErrCriterionHalt = errors.New("pounders: criterion requested halt")
)
