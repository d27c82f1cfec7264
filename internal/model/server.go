package model

import (
	"fmt"
	"sync"

	"github.com/Brownie44l1/paddy-api/internal/imaging"
	"github.com/Brownie44l1/paddy-api/internal/paddy"
	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the onnxruntime shared library and initializes the
// process-wide environment. An empty libraryPath uses the library's default
// lookup.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// DestroyRuntime releases the onnxruntime environment. Sessions must be
// closed first.
func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Session is a loaded ONNX model with bound input and output tensors. The
// tensors are reused for every call, so Score holds mu for the whole
// copy-run-read cycle.
type Session struct {
	Metadata Metadata

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

var _ paddy.Scorer = (*Session)(nil)

// NewSession loads the model at modelPath using the metadata at
// metadataPath. InitRuntime must have been called.
func NewSession(modelPath, metadataPath string) (*Session, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &Session{
		Metadata:     metadata,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// InputSize returns the resolution the model expects.
func (s *Session) InputSize() imaging.Size {
	return s.Metadata.InputSize()
}

// Score runs the model on input and returns a copy of the output tensor.
func (s *Session) Score(input imaging.Tensor) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("%w: session is closed", paddy.ErrInference)
	}

	dst := s.inputTensor.GetData()
	if len(input.Data) != len(dst) {
		return nil, fmt.Errorf("%w: got %d input values, model expects %d", paddy.ErrInference, len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", paddy.ErrInference, err)
	}

	return append([]float32(nil), s.outputTensor.GetData()...), nil
}

// Close releases the session and its tensors. It is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// Models holds the two sessions the diagnosis pipeline needs.
type Models struct {
	Gate    *Session
	Disease *Session
}

// Paths locates a model file and its metadata file.
type Paths struct {
	Model    string
	Metadata string
}

// LoadModels opens the gate and disease models and checks that the disease
// model's classes are the fixed label set in order.
func LoadModels(gate, disease Paths) (*Models, error) {
	g, err := NewSession(gate.Model, gate.Metadata)
	if err != nil {
		return nil, fmt.Errorf("gate model: %w", err)
	}

	d, err := NewSession(disease.Model, disease.Metadata)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("disease model: %w", err)
	}

	if err := d.Metadata.CheckClasses(paddy.LabelNames()); err != nil {
		g.Close()
		d.Close()
		return nil, fmt.Errorf("disease model: %w", err)
	}

	return &Models{Gate: g, Disease: d}, nil
}

// Close releases both sessions.
func (m *Models) Close() {
	m.Gate.Close()
	m.Disease.Close()
}
