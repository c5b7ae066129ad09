package postprocess

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nvr-ai/go-seg/models/classes"
)

// Config holds the tunables of a Pipeline.
type Config struct {
	// ScoreThreshold is the exclusive minimum class score of a candidate.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold" mapstructure:"score_threshold"`
	// IoUThreshold is the overlap at or above which candidates are suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold" mapstructure:"iou_threshold"`
	// MaskChannels is the number of mask weight channels the head emits. It is
	// only consulted when Detect is called without prototypes; with
	// prototypes the count comes from the prototype tensor.
	MaskChannels int `json:"mask_channels" yaml:"mask_channels" mapstructure:"mask_channels"`
	// MaxDetections caps the number of detections returned; 0 means no cap.
	MaxDetections int `json:"max_detections" yaml:"max_detections" mapstructure:"max_detections"`
}

// DefaultConfig returns the thresholds used by the stock YOLOv8 exports.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: DefaultScoreThreshold,
		IoUThreshold:   DefaultIoUThreshold,
	}
}

// Observer receives one event per Detect call. It is implemented by the
// metrics package.
type Observer interface {
	ObserveDetect(candidates, kept int, elapsed time.Duration)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for per-call debug events.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMaskChannels sets Config.MaskChannels, so a segmentation head's output
// can be decoded for boxes only when no prototypes are passed.
func WithMaskChannels(n int) Option {
	return func(p *Pipeline) {
		p.config.MaskChannels = n
	}
}

// WithObserver registers an observer for per-call statistics.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// Pipeline decodes, suppresses and attaches prototype masks to the output of
// one model. It holds read-only configuration only, so a single Pipeline may
// serve concurrent Detect calls.
type Pipeline struct {
	labels   *classes.Table
	decoder  *Decoder
	config   Config
	logger   zerolog.Logger
	observer Observer
}

// NewPipeline creates a pipeline.
//
// Arguments:
//   - labels: The label table of the model.
//   - cfg: Thresholds and layout.
//   - opts: Optional logger and observer.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: ErrEmptyLabels for an empty table, or an error for a negative
//     MaskChannels or MaxDetections.
func NewPipeline(labels *classes.Table, cfg Config, opts ...Option) (*Pipeline, error) {
	decoder, err := NewDecoder(labels, cfg.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		labels:  labels,
		decoder: decoder,
		config:  cfg,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.config.MaskChannels < 0 {
		return nil, errors.Errorf("mask channels must not be negative, got %d", p.config.MaskChannels)
	}
	if p.config.MaxDetections < 0 {
		return nil, errors.Errorf("max detections must not be negative, got %d", p.config.MaxDetections)
	}

	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Labels returns the label table.
func (p *Pipeline) Labels() *classes.Table {
	return p.labels
}

// Detect runs decode and suppression over one image's outputs.
//
// With protos the mask channel count is taken from the prototype tensor and
// the surviving detections keep their weights, so Output.Mask can build their
// masks later. Without protos a detection tensor that still carries
// Config.MaskChannels mask channels is accepted and the weights are dropped.
//
// Arguments:
//   - out: The detection tensor, (C, A) or (1, C, A).
//   - protos: The prototype tensor (1, N, H, W), or nil.
//
// Returns:
//   - *Output: The surviving detections in suppression order.
//   - error: ErrShapeMismatch or classes.ErrUnknownClass.
func (p *Pipeline) Detect(out Tensor, protos *Tensor) (*Output, error) {
	start := time.Now()

	var (
		set          *PrototypeMaskSet
		maskChannels int
		dropWeights  bool
		err          error
	)

	if protos != nil {
		set, err = NewPrototypeMaskSet(*protos)
		if err != nil {
			return nil, err
		}
		if p.config.MaskChannels > 0 && p.config.MaskChannels != set.Channels() {
			return nil, errors.Wrapf(ErrShapeMismatch, "prototype tensor has %d channels, configured for %d",
				set.Channels(), p.config.MaskChannels)
		}
		maskChannels = set.Channels()
	} else if p.config.MaskChannels > 0 && channelCount(out) == p.decoder.Layout(p.config.MaskChannels).Channels() {
		maskChannels = p.config.MaskChannels
		dropWeights = true
	}

	candidates, err := p.decoder.Decode(out, maskChannels)
	if err != nil {
		return nil, err
	}

	if dropWeights {
		for i := range candidates {
			candidates[i].MaskWeights = nil
		}
	}

	kept := ApplyNMS(candidates, &NMSConfig{
		IoUThreshold:  p.config.IoUThreshold,
		MaxDetections: p.config.MaxDetections,
	})

	elapsed := time.Since(start)
	p.logger.Debug().
		Int("candidates", len(candidates)).
		Int("kept", len(kept)).
		Bool("masks", set != nil).
		Dur("elapsed", elapsed).
		Msg("post-processed detection output")

	if p.observer != nil {
		p.observer.ObserveDetect(len(candidates), len(kept), elapsed)
	}

	return &Output{Detections: kept, Prototypes: set}, nil
}

// channelCount returns the channel dimension of a (C, A) or (1, C, A) tensor,
// or -1 for any other shape.
func channelCount(t Tensor) int {
	switch {
	case len(t.Shape) == 3 && t.Shape[0] == 1:
		return t.Shape[1]
	case len(t.Shape) == 2:
		return t.Shape[0]
	default:
		return -1
	}
}

// Detect is the one-shot form of Pipeline.Detect for callers that do not keep
// a configured pipeline around.
//
// Arguments:
//   - out: The detection tensor.
//   - labels: The label table.
//   - scoreThreshold: The exclusive minimum class score.
//   - iouThreshold: The suppression overlap threshold.
//   - protos: The prototype tensor, or nil.
//   - opts: Optional pipeline options, e.g. WithMaskChannels for a
//     segmentation head decoded without prototypes.
//
// Returns:
//   - *Output: The surviving detections.
//   - error: See Pipeline.Detect.
func Detect(out Tensor, labels *classes.Table, scoreThreshold, iouThreshold float32, protos *Tensor, opts ...Option) (*Output, error) {
	p, err := NewPipeline(labels, Config{
		ScoreThreshold: scoreThreshold,
		IoUThreshold:   iouThreshold,
	}, opts...)
	if err != nil {
		return nil, err
	}

	return p.Detect(out, protos)
}

// Output is the result of one Detect call.
type Output struct {
	// Detections are the suppression winners in finalization order.
	Detections []Detection `json:"detections" yaml:"detections"`
	// Prototypes is nil when Detect was called without a prototype tensor.
	Prototypes *PrototypeMaskSet `json:"-" yaml:"-"`
}

// HasMasks reports whether masks can be built for the detections.
func (o *Output) HasMasks() bool {
	return o.Prototypes != nil
}

// Mask computes the weighted mask of detection i. Nothing is cached; every
// call does the full matrix-vector product.
//
// Arguments:
//   - i: The detection index.
//
// Returns:
//   - *WeightedMask: The H x W mask at prototype resolution.
//   - error: ErrNoPrototypes, ErrMaskWeights, or an error for an index out of
//     range.
func (o *Output) Mask(i int) (*WeightedMask, error) {
	if o.Prototypes == nil {
		return nil, ErrNoPrototypes
	}
	if i < 0 || i >= len(o.Detections) {
		return nil, errors.Errorf("detection index %d out of range [0, %d)", i, len(o.Detections))
	}

	return o.Prototypes.WeightedMask(o.Detections[i].MaskWeights)
}
