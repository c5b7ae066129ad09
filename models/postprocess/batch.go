package postprocess

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Input is the raw output of one inference: the detection tensor and, for
// segmentation models, the prototype tensor.
type Input struct {
	Output     Tensor
	Prototypes *Tensor
}

// DetectBatch runs Detect over independent inputs concurrently, at most
// GOMAXPROCS at a time. Results are returned in input order.
//
// The first failing input cancels the rest; inputs not yet started when ctx
// is cancelled are skipped.
//
// Arguments:
//   - ctx: Cancellation for the batch.
//   - inputs: One entry per image.
//
// Returns:
//   - []*Output: One output per input.
//   - error: The first error, annotated with the input index, or ctx.Err().
func (p *Pipeline) DetectBatch(ctx context.Context, inputs []Input) ([]*Output, error) {
	outputs := make([]*Output, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := p.Detect(inputs[i].Output, inputs[i].Prototypes)
			if err != nil {
				return errors.Wrapf(err, "batch input %d", i)
			}
			outputs[i] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outputs, nil
}
