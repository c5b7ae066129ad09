// Package inference - onnxruntime sessions and the detection engine.
package inference

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-seg/inference/providers"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Runner executes a model on one prepared input.
type Runner interface {
	// InputShape returns the (1, 3, H, W) input dimensions.
	InputShape() []int64
	// Run executes the model and returns a copy of every output.
	Run(input []float32) ([]postprocess.Tensor, error)
	// Close releases the native resources.
	Close() error
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// The input names; empty takes every input of the model.
	Inputs []string
	// The output names; empty takes every output of the model.
	Outputs []string
	// The input size used for dynamic height/width dimensions.
	InputWidth  int
	InputHeight int
	// The execution provider.
	Provider providers.Config
	// The onnxruntime shared library; empty uses providers.SharedLibraryPath.
	SharedLibrary string
}

// Session represents a model session from the onnxruntime with preallocated
// input and output tensors. Run calls are serialized since the tensors are
// shared.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	inputs  []*buffer
	outputs []*buffer
}

// NewSession creates a new onnxruntime session.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Shape discovery: reads the input and output shapes from the model,
//     replacing dynamic dimensions with the configured input size.
//  3. Tensor allocation: float32 or float16 buffers matching the model.
//  4. Session options: the configured execution provider.
//  5. Session creation: binds the buffers to the model.
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session; the caller must Close it.
//   - error: An error if any step fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	if err := providers.InitializeEnvironment(providers.SharedLibraryPath(args.SharedLibrary)); err != nil {
		return nil, err
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(args.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read input/output info of %s", args.ModelPath)
	}

	inputInfo, err = selectInfo(inputInfo, args.Inputs)
	if err != nil {
		return nil, errors.Wrap(err, "inputs")
	}
	outputInfo, err = selectInfo(outputInfo, args.Outputs)
	if err != nil {
		return nil, errors.Wrap(err, "outputs")
	}

	s := &Session{}
	for _, info := range inputInfo {
		shape, err := staticShape(info.Dimensions, args.InputWidth, args.InputHeight, true)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "input %q", info.Name)
		}
		b, err := newBuffer(info, shape)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "input %q", info.Name)
		}
		s.inputs = append(s.inputs, b)
	}
	for _, info := range outputInfo {
		shape, err := staticShape(info.Dimensions, args.InputWidth, args.InputHeight, false)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "output %q", info.Name)
		}
		b, err := newBuffer(info, shape)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "output %q", info.Name)
		}
		s.outputs = append(s.outputs, b)
	}

	options, err := args.Provider.SessionOptions()
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSession(
		args.ModelPath,
		names(s.inputs),
		names(s.outputs),
		values(s.inputs),
		values(s.outputs),
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create onnxruntime session")
	}

	return s, nil
}

// InputShape returns the shape of the first input.
func (s *Session) InputShape() []int64 {
	return s.inputs[0].shape
}

// Run copies input into the first input tensor, executes the model and
// returns a copy of every output, converted to float32.
func (s *Session) Run(input []float32) ([]postprocess.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}
	if err := s.inputs[0].write(input); err != nil {
		return nil, err
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run onnxruntime session")
	}

	outputs := make([]postprocess.Tensor, 0, len(s.outputs))
	for _, b := range s.outputs {
		t, err := b.read()
		if err != nil {
			return nil, errors.Wrapf(err, "output %q", b.name)
		}
		outputs = append(outputs, t)
	}

	return outputs, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.inputs {
		b.destroy()
	}
	for _, b := range s.outputs {
		b.destroy()
	}
	s.inputs, s.outputs = nil, nil

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "destroy onnxruntime session")
		}
	}

	return nil
}

// selectInfo orders model inputs or outputs by the requested names.
func selectInfo(all []ort.InputOutputInfo, wanted []string) ([]ort.InputOutputInfo, error) {
	if len(wanted) == 0 {
		return all, nil
	}

	byName := make(map[string]ort.InputOutputInfo, len(all))
	for _, info := range all {
		byName[info.Name] = info
	}

	selected := make([]ort.InputOutputInfo, 0, len(wanted))
	for _, name := range wanted {
		info, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("model has no tensor named %q", name)
		}
		selected = append(selected, info)
	}

	return selected, nil
}

// staticShape replaces the dynamic (-1) dimensions of a tensor: the batch
// becomes 1 and, for a (N, C, H, W) input, height and width become the
// configured input size. Any other dynamic dimension is an error since the
// buffers are preallocated.
func staticShape(dims ort.Shape, width, height int, input bool) (ort.Shape, error) {
	shape := dims.Clone()
	for i, d := range shape {
		if d >= 0 {
			continue
		}
		switch {
		case i == 0:
			shape[i] = 1
		case input && len(shape) == 4 && i == 2 && height > 0:
			shape[i] = int64(height)
		case input && len(shape) == 4 && i == 3 && width > 0:
			shape[i] = int64(width)
		default:
			return nil, errors.Errorf("dimension %d of %v is dynamic; export the model with a fixed image size", i, dims)
		}
	}
	return shape, nil
}

// buffer is one preallocated session tensor, float32 or float16.
type buffer struct {
	name  string
	shape ort.Shape
	f32   *ort.Tensor[float32]
	f16   *ort.CustomDataTensor
	raw   []byte
}

func newBuffer(info ort.InputOutputInfo, shape ort.Shape) (*buffer, error) {
	b := &buffer{name: info.Name, shape: shape}

	var err error
	switch info.DataType {
	case ort.TensorElementDataTypeFloat:
		b.f32, err = ort.NewEmptyTensor[float32](shape)
	case ort.TensorElementDataTypeFloat16:
		b.raw = make([]byte, 2*shape.FlattenedSize())
		b.f16, err = ort.NewCustomDataTensor(shape, b.raw, ort.TensorElementDataTypeFloat16)
	default:
		return nil, errors.Errorf("unsupported tensor element type %v", info.DataType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "allocate tensor")
	}

	return b, nil
}

func (b *buffer) value() ort.ArbitraryTensor {
	if b.f16 != nil {
		return b.f16
	}
	return b.f32
}

func (b *buffer) write(src []float32) error {
	if int64(len(src)) != b.shape.FlattenedSize() {
		return errors.Wrapf(postprocess.ErrShapeMismatch, "input %q holds %d values, got %d",
			b.name, b.shape.FlattenedSize(), len(src))
	}

	if b.f16 != nil {
		for i, v := range src {
			binary.LittleEndian.PutUint16(b.raw[2*i:], float16.Fromfloat32(v).Bits())
		}
		return nil
	}

	copy(b.f32.GetData(), src)
	return nil
}

func (b *buffer) read() (postprocess.Tensor, error) {
	dims := make([]int, len(b.shape))
	for i, d := range b.shape {
		dims[i] = int(d)
	}

	if b.f16 != nil {
		bits := make([]uint16, len(b.raw)/2)
		for i := range bits {
			bits[i] = binary.LittleEndian.Uint16(b.raw[2*i:])
		}
		return postprocess.TensorFromFloat16(bits, dims...)
	}

	data := make([]float32, len(b.f32.GetData()))
	copy(data, b.f32.GetData())
	return postprocess.NewTensor(data, dims...)
}

func (b *buffer) destroy() {
	if b.f32 != nil {
		b.f32.Destroy()
		b.f32 = nil
	}
	if b.f16 != nil {
		b.f16.Destroy()
		b.f16 = nil
	}
}

func names(buffers []*buffer) []string {
	out := make([]string, len(buffers))
	for i, b := range buffers {
		out[i] = b.name
	}
	return out
}

func values(buffers []*buffer) []ort.ArbitraryTensor {
	out := make([]ort.ArbitraryTensor, len(buffers))
	for i, b := range buffers {
		out[i] = b.value()
	}
	return out
}
