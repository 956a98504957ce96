package classifier

import (
	"fmt"
	"sync"

	"github.com/tphakala/go-tflite"

	"github.com/tphakala/exoplanet-go/internal/cpuspec"
	"github.com/tphakala/exoplanet-go/internal/errors"
	"github.com/tphakala/exoplanet-go/internal/features"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

// TFLiteScorer runs a TensorFlow Lite binary classifier. The interpreter is
// not reentrant, so calls are serialized.
type TFLiteScorer struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputSize   int
}

// LoadTFLite loads the model at path with the given thread count (0 picks
// one per physical core).
func LoadTFLite(path string, threads int) (*TFLiteScorer, error) {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model %s", path).
			Component("classifier").
			Category(errors.CategoryModelUnavailable).
			FileContext(path).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(cpuspec.ThreadCount(threads))
	options.SetErrorReporter(func(msg string, _ any) {
		logger.Global().Module("classifier").Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.NewStd("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	input := interpreter.GetInputTensor(0)
	if input == nil {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.NewStd("cannot get input tensor")
	}

	return &TFLiteScorer{
		model:       model,
		options:     options,
		interpreter: interpreter,
		inputSize:   input.Dim(input.NumDims() - 1),
	}, nil
}

func (s *TFLiteScorer) InputSize() int { return s.inputSize }
func (s *TFLiteScorer) Version() string { return "" }

// Score copies vec into the input tensor and reads the class probabilities.
// A single-output model is read as p(planet).
func (s *TFLiteScorer) Score(vec features.Vector) ([2]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	input := s.interpreter.GetInputTensor(0)
	if input == nil {
		return [2]float64{}, errors.NewStd("cannot get input tensor")
	}
	copy(input.Float32s(), vec)

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return [2]float64{}, fmt.Errorf("tensor invoke failed: %v", status)
	}

	output := s.interpreter.GetOutputTensor(0)
	if output == nil {
		return [2]float64{}, errors.NewStd("cannot get output tensor")
	}
	out := output.Float32s()

	switch len(out) {
	case 0:
		return [2]float64{}, errors.NewStd("model produced no output")
	case 1:
		p := float64(out[0])
		return [2]float64{1 - p, p}, nil
	default:
		return [2]float64{float64(out[0]), float64(out[1])}, nil
	}
}

// Close releases the interpreter and model
func (s *TFLiteScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interpreter != nil {
		s.interpreter.Delete()
		s.interpreter = nil
	}
	if s.options != nil {
		s.options.Delete()
		s.options = nil
	}
	if s.model != nil {
		s.model.Delete()
		s.model = nil
	}
	return nil
}
