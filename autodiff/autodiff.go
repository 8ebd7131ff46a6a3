// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over scalars.
//
// A Tape records every operation of a forward computation. Grad replays it
// backward and returns the derivatives of an output with respect to chosen
// inputs. Checkpoints roll the tape back so repeated inner computations do
// not grow it.
//
// Example:
//
//	import "github.com/born-ml/tape/autodiff"
//
//	func main() {
//	    tape := autodiff.New()
//	    x, y := tape.Var(3), tape.Var(4)
//	    z := x.Add(y).Mul(x) // 21
//
//	    grads, err := tape.Grad(z, x, y) // [10, 3]
//	}
//
// Nested scopes:
//
//	err := tape.Nested(func() error {
//	    ll := logLikelihood(tape, params)
//	    value = ll.Value() // copy out before the scope closes
//	    return nil
//	})
package autodiff

import (
	"log/slog"

	"github.com/born-ml/tape/internal/autodiff"
)

// Tape records operations for reverse-mode differentiation.
type Tape = autodiff.Tape

// Var is a handle to a recorded value.
type Var = autodiff.Var

// Checkpoint identifies an open nested scope.
type Checkpoint = autodiff.Checkpoint

// Func is a scalar function built on a tape.
type Func = autodiff.Func

// Config sizes a tape's arenas.
type Config = autodiff.Config

// Option configures a tape.
type Option = autodiff.Option

// Stats is a snapshot of a tape's size.
type Stats = autodiff.Stats

// Op identifies the kind of a recorded operation.
type Op = autodiff.Op

// Errors reported by tapes and handles.
var (
	ErrNoCheckpoint    = autodiff.ErrNoCheckpoint
	ErrCheckpointOrder = autodiff.ErrCheckpointOrder
	ErrNestedOpen      = autodiff.ErrNestedOpen
	ErrStaleVar        = autodiff.ErrStaleVar
	ErrForeignVar      = autodiff.ErrForeignVar
	ErrNilVar          = autodiff.ErrNilVar
	ErrOutOfScope      = autodiff.ErrOutOfScope
	ErrInvalidConfig   = autodiff.ErrInvalidConfig
)

// New creates a tape.
//
// Example:
//
//	tape := autodiff.New(autodiff.WithLogger(slog.Default()))
func New(opts ...Option) *Tape {
	return autodiff.New(opts...)
}

// WithConfig sizes the tape's arenas.
func WithConfig(cfg Config) Option {
	return autodiff.WithConfig(cfg)
}

// WithLogger sets the logger for checkpoint and arena events.
func WithLogger(logger *slog.Logger) Option {
	return autodiff.WithLogger(logger)
}

// DefaultConfig returns the configuration used by the zero Tape.
func DefaultConfig() Config {
	return autodiff.DefaultConfig()
}

// ParseConfig decodes a YAML tape configuration.
func ParseConfig(data []byte) (Config, error) {
	return autodiff.ParseConfig(data)
}
