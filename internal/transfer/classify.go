package transfer

import (
	"strings"

	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
)

// IsExcluded reports whether key contains any of the exclusion substrings.
func IsExcluded(key string, exclusions []string) bool {
	for _, s := range exclusions {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// Mismatch describes a target key present in the source with an incompatible tensor.
type Mismatch struct {
	Key         string
	TargetShape tensor.Shape
	SourceShape tensor.Shape
	TargetDType tensor.DataType
	SourceDType tensor.DataType
}

// ShapeDiffers is false when only the dtypes are incompatible.
func (m Mismatch) ShapeDiffers() bool {
	return !m.TargetShape.Equal(m.SourceShape)
}

// Classification sorts every target key into exactly one class. All lists
// are in lexical key order.
type Classification struct {
	Matched         []string
	ShapeMismatched []Mismatch
	Missing         []string
	Excluded        []string
}

// Classify compares the target mapping with the source mapping. Excluded
// keys are not looked up in the source. A source tensor matches when it has
// the target's shape and a dtype that converts to the target's.
func Classify(target, source map[string]*tensor.RawTensor, exclusions []string) *Classification {
	c := &Classification{}
	for _, key := range nn.SortedKeys(target) {
		if IsExcluded(key, exclusions) {
			c.Excluded = append(c.Excluded, key)
			continue
		}
		src, ok := source[key]
		if !ok {
			c.Missing = append(c.Missing, key)
			continue
		}
		dst := target[key]
		if dst.Shape().Equal(src.Shape()) && convertible(src.DType(), dst.DType()) {
			c.Matched = append(c.Matched, key)
			continue
		}
		c.ShapeMismatched = append(c.ShapeMismatched, Mismatch{
			Key:         key,
			TargetShape: dst.Shape(),
			SourceShape: src.Shape(),
			TargetDType: dst.DType(),
			SourceDType: src.DType(),
		})
	}
	return c
}

// Incompatibility returns the first key, in lexical order, that prevents a
// strict transfer, or nil.
func (c *Classification) Incompatibility(target map[string]*tensor.RawTensor) *IncompatibilityError {
	var first *IncompatibilityError
	consider := func(e *IncompatibilityError) {
		if first == nil || e.Key < first.Key {
			first = e
		}
	}
	if len(c.Missing) > 0 {
		key := c.Missing[0]
		consider(&IncompatibilityError{
			Key:         key,
			Reason:      ErrMissingKey,
			TargetShape: target[key].Shape(),
			TargetDType: target[key].DType(),
		})
	}
	if len(c.ShapeMismatched) > 0 {
		m := c.ShapeMismatched[0]
		reason := ErrShapeMismatch
		if !m.ShapeDiffers() {
			reason = ErrDTypeMismatch
		}
		consider(&IncompatibilityError{
			Key:         m.Key,
			Reason:      reason,
			TargetShape: m.TargetShape,
			SourceShape: m.SourceShape,
			TargetDType: m.TargetDType,
			SourceDType: m.SourceDType,
		})
	}
	return first
}

func convertible(from, to tensor.DataType) bool {
	return from == to || (from.IsFloat() && to.IsFloat())
}
