package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

// Metadata describes one exported model: its fixed IO shapes and the class
// labels its output vector indexes into.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
}

// Model wraps a single ONNX session with preallocated IO tensors. Sessions
// are loaded once at startup and shared by all requests; Run reuses the
// same buffers, so invocations are serialized with a mutex.
type Model struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// InitRuntime sets up the process-wide ONNX runtime environment. Call once
// before loading any model.
func InitRuntime() error {
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize ONNX environment: %w", err)
	}
	return nil
}

// ShutdownRuntime tears the environment down after all models are closed.
func ShutdownRuntime() {
	ort.DestroyEnvironment()
}

func LoadModel(modelPath, metadataPath string) (*Model, error) {
	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	return &Model{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict runs the session over the tensor and returns a copy of the raw
// output vector.
func (m *Model) Predict(t vision.Tensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.inputTensor.GetData()
	if len(t.Data) != len(in) {
		return nil, fmt.Errorf("tensor size mismatch: got %d values, model expects %d", len(t.Data), len(in))
	}
	copy(in, t.Data)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := m.outputTensor.GetData()
	vector := make([]float32, len(out))
	copy(vector, out)
	return vector, nil
}

func (m *Model) Close() {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	if m.session != nil {
		m.session.Destroy()
	}
}
