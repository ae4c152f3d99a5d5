// Package transfer initializes a network from pretrained weights.
//
// The parameters of the network (the target mapping) are matched by key and
// shape against the parameters read from a checkpoint (the source mapping).
// Keys containing one of the exclusion substrings, typically task-specific
// heads, are never transferred. Matching tensors are copied into the network
// in place; every other parameter keeps its value.
//
// Two modes exist. Strict requires every non-excluded key to match and checks
// this before touching the network. Lenient transfers what matches and reports
// the rest.
package transfer

import (
	"maps"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/warmstart/internal/checkpoint"
	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
)

// Result describes a completed (or, for Plan, a prospective) transfer.
type Result struct {
	Mode   Mode
	Source string // Path of the pretrained weights, empty for in-memory sources.

	// Matched lists the transferred keys. ShapeMismatched and Missing are
	// only filled in lenient mode, where they are not errors.
	Matched         []string
	ShapeMismatched []Mismatch
	Missing         []string
	Excluded        []string

	// Bytes is the size of the transferred tensors in the network's dtypes.
	Bytes int64
}

// LoadSource reads the source mapping stored under opts.Field of the file at
// path, onto opts.Device. Any failure is a *LoadError.
func LoadSource(path string, opts Options) (map[string]*tensor.RawTensor, error) {
	source, err := checkpoint.ReadField(path, opts.Field, checkpoint.ReadOptions{
		Device:       opts.Device,
		SkipChecksum: opts.SkipChecksum,
	})
	if err != nil {
		return nil, &LoadError{Path: path, Field: opts.Field, Err: err}
	}
	if opts.StripPrefixes {
		if source, err = StripKeyPrefixes(source); err != nil {
			return nil, &LoadError{Path: path, Field: opts.Field, Err: err}
		}
	}
	klog.V(1).Infof("Loaded %d pretrained tensors from %q (field %q) onto %s", len(source), path, opts.Field, opts.Device)
	return source, nil
}

// LoadPretrained loads the pretrained weights at path into network.
//
// Wrappers around the network are removed first (see Unwrap). In strict mode
// a *IncompatibilityError is returned, and the network left untouched, if a
// non-excluded key is missing from the file or has another shape.
func LoadPretrained(network nn.Module, path string, opts Options) (*Result, error) {
	source, err := LoadSource(path, opts)
	if err != nil {
		return nil, err
	}
	return apply(network, source, path, opts)
}

// Transfer is LoadPretrained with an in-memory source mapping.
// Options.Field and Options.StripPrefixes are not used.
func Transfer(network nn.Module, source map[string]*tensor.RawTensor, opts Options) (*Result, error) {
	return apply(network, source, "", opts)
}

// Plan classifies the network's keys against the source without modifying
// anything. In strict mode it returns the same *IncompatibilityError that
// Transfer would.
func Plan(network nn.Module, source map[string]*tensor.RawTensor, opts Options) (*Result, error) {
	target := Unwrap(network).StateDict()
	return plan(target, source, opts)
}

func plan(target, source map[string]*tensor.RawTensor, opts Options) (*Result, error) {
	c := Classify(target, source, opts.Exclusions)
	if opts.Mode == Strict {
		if e := c.Incompatibility(target); e != nil {
			return nil, e
		}
	}
	res := &Result{
		Mode:     opts.Mode,
		Matched:  c.Matched,
		Excluded: c.Excluded,
	}
	if opts.Mode == Lenient {
		res.ShapeMismatched = c.ShapeMismatched
		res.Missing = c.Missing
	}
	for _, key := range c.Matched {
		res.Bytes += int64(target[key].ByteSize())
	}
	return res, nil
}

func apply(network nn.Module, source map[string]*tensor.RawTensor, path string, opts Options) (*Result, error) {
	mod := Unwrap(network)
	target := mod.StateDict()

	res, err := plan(target, source, opts)
	if err != nil {
		klog.V(1).Infof("Pretrained weights rejected: %v", err)
		return nil, err
	}
	res.Source = path

	// The merged mapping holds the live target tensors, replaced by the
	// source tensor for matched keys only.
	merged := maps.Clone(target)
	for _, key := range res.Matched {
		src, dst := source[key], target[key]
		if src.DType() != dst.DType() {
			klog.Warningf("Converting pretrained %q from %s to %s", key, src.DType(), dst.DType())
			if src, err = src.Convert(dst.DType()); err != nil {
				return nil, errors.Wrapf(err, "failed to convert %q", key)
			}
		}
		klog.V(2).Infof("Transferring %q %v", key, dst.Shape())
		merged[key] = src
	}
	if err := mod.LoadStateDict(merged); err != nil {
		return nil, errors.WithMessage(err, "failed to apply pretrained weights")
	}

	// Replicas of a data-parallel network follow the module they wrap.
	if s, ok := network.(interface{ Sync() }); ok {
		s.Sync()
	}

	klog.V(1).Infof("Transferred %d of %d parameter tensors (%s mode, %d excluded, %d mismatched, %d missing)",
		len(res.Matched), len(target), res.Mode, len(res.Excluded), len(res.ShapeMismatched), len(res.Missing))
	if opts.Report != nil {
		writeReport(opts.Report, res, source, opts.Verbose)
	}
	return res, nil
}
