// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides parameter-holding network modules.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Conv, Norm
//   - Containers: Container (named children), Sequential (indexed children)
//   - Wrappers: DataParallel, Compiled
//   - StateModule: a module made only of a state dict
//   - Initialization: Xavier, KaimingUniform, Zeros, Ones
//
// Every module exposes its parameters as a state dict keyed by dotted layer
// paths and loads one back strictly.
//
// # Basic Usage
//
//	net := nn.NewContainer().
//	    Add("encoder", nn.NewSequential(nn.NewConv(1, 32, 3, 3, 3), nn.NewNorm(32))).
//	    Add("decoder", nn.NewContainer().
//	        Add("seg_layers", nn.NewConv(32, 2, 1, 1, 1)))
//
//	for key, w := range net.StateDict() {
//	    fmt.Println(key, w.Shape()) // encoder.0.weight (32, 1, 3, 3, 3) ...
//	}
//
// # Wrappers
//
// DataParallel prefixes keys with "module." and Compiled with "_orig_mod.",
// like the corresponding wrappers of other frameworks. A network may be
// wrapped by both, data-parallel outermost.
package nn
