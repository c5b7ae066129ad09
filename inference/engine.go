package inference

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/classes"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Engine runs a segmentation or detection model on images.
type Engine interface {
	// Predict runs the model on one image. Boxes and masks are in model input
	// units; see ScaleFactors.
	Predict(ctx context.Context, img image.Image) (*postprocess.Output, error)
	// Model returns the configured model.
	Model() model.Model
	// InputSize returns the width and height images are resized to.
	InputSize() (width, height int)
	// Close releases the session.
	Close() error
}

// EngineBuilder assembles an Engine with a fluent API. The first error
// short-circuits every later call and is returned by Build.
type EngineBuilder struct {
	args          *model.NewModelArgs
	labels        *classes.Table
	provider      providers.Config
	sharedLibrary string
	runner        Runner
	pipelineOpts  []postprocess.Option
	err           error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{provider: providers.DefaultConfig()}
}

// WithModel sets the model for the engine.
//
// Arguments:
//   - args: The model arguments.
//   - labels: The labels; nil reads them from the model metadata, falling
//     back to COCO.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(args model.NewModelArgs, labels *classes.Table) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.args = &args
	b.labels = labels
	return b
}

// WithProvider sets the execution provider for the session.
func (b *EngineBuilder) WithProvider(cfg providers.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if _, err := providers.ParseBackend(string(cfg.Backend)); err != nil {
		b.err = err
		return b
	}
	b.provider = cfg
	return b
}

// WithSharedLibrary sets the onnxruntime shared library path.
func (b *EngineBuilder) WithSharedLibrary(path string) *EngineBuilder {
	b.sharedLibrary = path
	return b
}

// WithSession uses an existing runner instead of opening an onnxruntime
// session from the model path.
func (b *EngineBuilder) WithSession(r Runner) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if r == nil {
		b.err = errors.New("runner is nil")
		return b
	}
	b.runner = r
	return b
}

// WithPipelineOptions passes logger and observer options to the model's
// post-processing pipeline.
func (b *EngineBuilder) WithPipelineOptions(opts ...postprocess.Option) *EngineBuilder {
	b.pipelineOpts = append(b.pipelineOpts, opts...)
	return b
}

// HasError checks if the engine builder has errors.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the engine and panics if there is an error.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build builds the engine.
//
// Returns:
//   - Engine: The engine.
//   - error: The first builder error, or an error opening the session or
//     creating the model.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.args == nil {
		return nil, errors.New("model not configured")
	}

	args := *b.args
	m, err := models.NewModel(args, b.labels, b.pipelineOpts...)
	if err != nil {
		return nil, err
	}
	opts := m.Options()

	runner := b.runner
	if runner == nil {
		session, err := NewSession(NewSessionArgs{
			ModelPath:     opts.Path,
			Inputs:        opts.Inputs,
			Outputs:       opts.Outputs,
			InputWidth:    opts.InputWidth,
			InputHeight:   opts.InputHeight,
			Provider:      b.provider,
			SharedLibrary: b.sharedLibrary,
		})
		if err != nil {
			return nil, err
		}
		runner = session

		if b.labels == nil {
			labels, err := LoadLabels(opts.Path)
			if err != nil {
				log.Warn().Err(err).Str("model", opts.Path).Msg("no labels in model metadata, using COCO")
			} else {
				m, err = models.NewModel(args, labels, b.pipelineOpts...)
				if err != nil {
					runner.Close()
					return nil, err
				}
			}
		}
	}

	shape := runner.InputShape()
	if len(shape) != 4 || shape[1] != 3 {
		runner.Close()
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "model input %v, want (1, 3, H, W)", shape)
	}

	return &engine{
		model:  m,
		runner: runner,
		width:  int(shape[3]),
		height: int(shape[2]),
		size:   int(3 * shape[2] * shape[3]),
	}, nil
}

// engine implements the Engine interface.
type engine struct {
	model  model.Model
	runner Runner
	width  int
	height int
	size   int
}

// Predict prepares the image, runs the model and post-processes the outputs.
//
// Arguments:
//   - ctx: The context for the prediction.
//   - img: The image to predict.
//
// Returns:
//   - *postprocess.Output: The detections.
//   - error: The error if any.
func (e *engine) Predict(ctx context.Context, img image.Image) (*postprocess.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := make([]float32, e.size)
	if err := PrepareInput(img, e.width, e.height, input); err != nil {
		return nil, err
	}

	outputs, err := e.runner.Run(input)
	if err != nil {
		return nil, err
	}

	return e.model.PostProcess(outputs)
}

func (e *engine) Model() model.Model {
	return e.model
}

func (e *engine) InputSize() (width, height int) {
	return e.width, e.height
}

func (e *engine) Close() error {
	return e.runner.Close()
}
