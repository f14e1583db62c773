package predict

import (
	"fmt"

	"github.com/rochfedorowicz/SkinLesionClassificationSystem/internal/vision"
)

// Predictor is one opaque classification model: a pure function from the
// normalized tensor to an output vector.
type Predictor interface {
	Predict(t vision.Tensor) ([]float32, error)
}

// Result combines the outputs of both classifiers for one image.
type Result struct {
	Binary     []float32 `json:"binary"`
	Multiclass []float32 `json:"multiclass"`
}

// Orchestrator runs the same tensor through the benign/malignant binary
// model and the lesion-type multiclass model. The two calls are
// independent; neither is retried.
type Orchestrator struct {
	binary     Predictor
	multiclass Predictor
}

func NewOrchestrator(binary, multiclass Predictor) *Orchestrator {
	return &Orchestrator{binary: binary, multiclass: multiclass}
}

func (o *Orchestrator) Classify(t vision.Tensor) (*Result, error) {
	binaryVec, err := o.binary.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("binary model: %w", err)
	}
	multiVec, err := o.multiclass.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("multiclass model: %w", err)
	}
	return &Result{Binary: binaryVec, Multiclass: multiVec}, nil
}
