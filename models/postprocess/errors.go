package postprocess

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch is returned when a tensor does not have the layout the
	// pipeline was configured for: wrong rank, wrong channel count, a non-unit
	// batch dimension or a backing slice of the wrong length.
	ErrShapeMismatch = errors.New("tensor shape mismatch")

	// ErrMaskWeights is returned when a mask weight vector does not carry one
	// weight per prototype channel.
	ErrMaskWeights = errors.New("mask weights do not match prototype channels")

	// ErrEmptyLabels is returned when a decoder is built without any class.
	ErrEmptyLabels = errors.New("label table is empty")

	// ErrNoPrototypes is returned when a mask is requested from an Output that
	// was produced without a prototype tensor.
	ErrNoPrototypes = errors.New("no prototype masks available")
)
