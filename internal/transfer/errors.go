package transfer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/tensor"
)

// Reasons carried by an IncompatibilityError. Test with errors.Is.
var (
	ErrMissingKey    = errors.New("key is missing in the pretrained weights")
	ErrShapeMismatch = errors.New("shape differs from the pretrained weights")
	ErrDTypeMismatch = errors.New("dtype cannot be converted from the pretrained weights")
)

// LoadError reports that pretrained weights could not be read: the file is
// missing, corrupt or of an unknown format, or lacks the requested field.
type LoadError struct {
	Path  string
	Field string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("failed to load pretrained weights from %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load pretrained weights from %q (field %q): %v", e.Path, e.Field, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IncompatibilityError reports a target key that strict mode cannot fill from
// the pretrained weights. It is returned before any parameter is modified.
type IncompatibilityError struct {
	Key         string
	Reason      error // ErrMissingKey, ErrShapeMismatch or ErrDTypeMismatch.
	TargetShape tensor.Shape
	SourceShape tensor.Shape // Nil when Reason is ErrMissingKey.
	TargetDType tensor.DataType
	SourceDType tensor.DataType
}

func (e *IncompatibilityError) Error() string {
	switch e.Reason {
	case ErrMissingKey:
		return fmt.Sprintf("key %s is missing in the pretrained weights; "+
			"the pretrained weights do not seem to be compatible with your network", e.Key)
	case ErrShapeMismatch:
		return fmt.Sprintf("the shape of the parameters of key %s is not the same: pretrained %v, network %v; "+
			"the pretrained weights do not seem to be compatible with your network", e.Key, e.SourceShape, e.TargetShape)
	case ErrDTypeMismatch:
		return fmt.Sprintf("the dtype of the parameters of key %s cannot be converted: pretrained %s, network %s",
			e.Key, e.SourceDType, e.TargetDType)
	}
	return fmt.Sprintf("key %s is incompatible: %v", e.Key, e.Reason)
}

func (e *IncompatibilityError) Unwrap() error {
	return e.Reason
}
