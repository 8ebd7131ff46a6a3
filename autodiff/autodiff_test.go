// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"fmt"
	"testing"

	"github.com/born-ml/tape/autodiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade(t *testing.T) {
	cfg, err := autodiff.ParseConfig([]byte("block_size: 16"))
	require.NoError(t, err)

	tape := autodiff.New(autodiff.WithConfig(cfg))
	x := tape.Var(2)

	var inner autodiff.Var
	err = tape.Nested(func() error {
		inner = x.Mul(x)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner.Err(), autodiff.ErrStaleVar)

	fx, grad, err := tape.Gradient(func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var {
		return v[0].Mul(v[1])
	}, []float64{3, 5})
	require.NoError(t, err)
	assert.Equal(t, 15.0, fx)
	assert.Equal(t, []float64{5, 3}, grad)
}

func Example() {
	tape := autodiff.New()
	x, y := tape.Var(3), tape.Var(4)
	z := x.Add(y).Mul(x)

	grads, err := tape.Grad(z, x, y)
	if err != nil {
		panic(err)
	}
	fmt.Println(z.Value(), grads)
	// Output: 21 [10 3]
}
