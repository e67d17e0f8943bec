// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package simplex solves large sparse linear programs
//
//	minimize 𝐜ᵀ𝐱 subject to 𝐥ᵣ ≤ 𝐀𝐱 ≤ 𝐮ᵣ and 𝐥꜀ ≤ 𝐱 ≤ 𝐮꜀
//
// with the revised dual simplex method.
//
// # Model
//
// The constraint matrix is extended with one logical variable per row,
// carrying the negated row activity, so that every constraint becomes a
// bound on a variable of the square system [𝐀 𝐈]. A basis partitions the
// extended variables into numRow basic and the rest nonbasic; the basic
// columns form the basis matrix 𝐁, held as an LU factorization with
// product-form updates.
//
// # Iteration
//
// Each pivot runs the classical dual pipeline:
//   - CHUZR picks the leaving row by steepest-edge weighted primal
//     infeasibility
//   - BTRAN solves 𝐁ᵀ𝛒 = 𝐞ᵣ and PRICE forms the tableau row 𝐀ᵀ𝛒
//   - CHUZC runs a two-pass Harris ratio test with bound flipping
//   - FTRAN solves 𝐁𝛂 = 𝐚ᵢₙ and the update set commits the pivot
//
// Costs are randomly perturbed against degeneracy and restored before an
// optimum is reported. The factorization is rebuilt when the update
// chain grows past the configured limit or loses accuracy.
//
// # Preparation
//
// Before the solve the working LP may be transposed (solving the dual of
// a tall problem), equilibrated with power-of-two scaling, column
// permuted, and bound tightened. Solutions are reported in the user's
// variable space, unscaled and unpermuted, except after the transpose
// pass: its solutions stay in the transposed space.
//
// A solve touches no shared state and runs on the calling goroutine;
// separate Solvers are independent.
package simplex
