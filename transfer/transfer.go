// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transfer initializes networks from pretrained weights.
//
// Parameters are matched by dotted key and shape. Keys containing one of the
// exclusion substrings (segmentation heads, decoders, ...) are never
// transferred.
//
// Example:
//
//	opts := transfer.DefaultOptions(transfer.Lenient)
//	opts.Verbose = true
//	res, err := transfer.LoadPretrained(network, "pretrained.born", opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(res.Matched), "tensors transferred")
package transfer

import (
	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
	"github.com/born-ml/warmstart/internal/transfer"
)

// Mode selects strict or lenient matching.
type Mode = transfer.Mode

// Transfer modes.
const (
	Strict  Mode = transfer.Strict
	Lenient Mode = transfer.Lenient
)

// Options configures a transfer.
type Options = transfer.Options

// Result describes a transfer.
type Result = transfer.Result

// Mismatch describes a key whose pretrained tensor cannot be used.
type Mismatch = transfer.Mismatch

// Rules is the YAML form of Options.
type Rules = transfer.Rules

// UnwrapStep removes one kind of wrapper around a network.
type UnwrapStep = transfer.UnwrapStep

// Errors

// LoadError reports unreadable pretrained weights.
type LoadError = transfer.LoadError

// IncompatibilityError reports a key strict mode cannot fill.
type IncompatibilityError = transfer.IncompatibilityError

// Reasons of an IncompatibilityError.
var (
	ErrMissingKey    = transfer.ErrMissingKey
	ErrShapeMismatch = transfer.ErrShapeMismatch
	ErrDTypeMismatch = transfer.ErrDTypeMismatch
)

// DefaultOptions returns the default options of mode.
func DefaultOptions(mode Mode) Options {
	return transfer.DefaultOptions(mode)
}

// DefaultExclusions returns the default exclusion substrings of mode.
func DefaultExclusions(mode Mode) []string {
	return transfer.DefaultExclusions(mode)
}

// ParseMode converts "strict" or "lenient" to a Mode.
func ParseMode(s string) (Mode, error) {
	return transfer.ParseMode(s)
}

// LoadRules reads transfer rules from a YAML file.
func LoadRules(path string) (*Rules, error) {
	return transfer.LoadRules(path)
}

// LoadPretrained loads the pretrained weights at path into network.
func LoadPretrained(network nn.Module, path string, opts Options) (*Result, error) {
	return transfer.LoadPretrained(network, path, opts)
}

// LoadSource reads the parameter mapping stored in the file at path.
func LoadSource(path string, opts Options) (map[string]*tensor.RawTensor, error) {
	return transfer.LoadSource(path, opts)
}

// Transfer copies the matching tensors of source into network.
func Transfer(network nn.Module, source map[string]*tensor.RawTensor, opts Options) (*Result, error) {
	return transfer.Transfer(network, source, opts)
}

// Plan classifies the keys of network against source without modifying it.
func Plan(network nn.Module, source map[string]*tensor.RawTensor, opts Options) (*Result, error) {
	return transfer.Plan(network, source, opts)
}

// Unwrap returns the module inside data-parallel and compiled wrappers.
func Unwrap(network nn.Module) nn.Module {
	return transfer.Unwrap(network)
}
