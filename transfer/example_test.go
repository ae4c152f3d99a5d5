// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package transfer_test

import (
	"fmt"
	"os"

	"github.com/born-ml/warmstart/nn"
	"github.com/born-ml/warmstart/tensor"
	"github.com/born-ml/warmstart/transfer"
)

func ExampleTransfer() {
	network := nn.NewContainer().
		Add("encoder", nn.NewSequential(nn.NewConv(1, 4, 3, 3, 3))).
		Add("decoder", nn.NewContainer().
			Add("seg_layers", nn.NewConv(4, 2, 1, 1, 1)))

	pretrained := map[string]*tensor.RawTensor{
		"encoder.0.weight": nn.Ones(tensor.Shape{4, 1, 3, 3, 3}),
		"encoder.0.bias":   nn.Ones(tensor.Shape{4}),
	}

	opts := transfer.DefaultOptions(transfer.Lenient)
	opts.Report = os.Stdout
	opts.Verbose = true
	res, err := transfer.Transfer(network, pretrained, opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Excluded)

	// Output:
	// ==== Matched Keys ====
	// ✓ encoder.0.bias
	// ✓ encoder.0.weight
	//
	// ==== Unmatched Keys ====
	//
	// ==== Missing Keys in Pretrained ====
	// ✅ Successfully loaded 2 tensors (448 B) from: <memory>
	// [decoder.seg_layers.bias decoder.seg_layers.weight]
}
