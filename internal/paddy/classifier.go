package paddy

import (
	"errors"
	"fmt"
	"math"

	"github.com/Brownie44l1/paddy-api/internal/imaging"
	"gonum.org/v1/gonum/floats"
)

// ErrInference is returned when a model cannot score a well-formed input.
var ErrInference = errors.New("inference failed")

// ErrDecode is returned when the uploaded bytes are not a usable image.
var ErrDecode = imaging.ErrDecode

// GateThreshold is the gate score at or above which an image counts as a
// paddy leaf.
const GateThreshold = 0.5

var (
	// GateSize is the input resolution of the paddy/not-paddy model.
	GateSize = imaging.Size{Width: 128, Height: 128}
	// DiseaseSize is the input resolution of the disease model.
	DiseaseSize = imaging.Size{Width: 256, Height: 256}
)

// Scorer runs a pre-trained model on a single normalized image and returns
// its raw output vector. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(input imaging.Tensor) ([]float32, error)
	InputSize() imaging.Size
}

func checkShape(s Scorer, t imaging.Tensor) error {
	want := s.InputSize().Shape()
	if t.Shape != want {
		return fmt.Errorf("%w: input shape %v, model expects %v", ErrInference, t.Shape, want)
	}
	if len(t.Data) != int(want[0]*want[1]*want[2]*want[3]) {
		return fmt.Errorf("%w: input has %d values for shape %v", ErrInference, len(t.Data), want)
	}
	return nil
}

// GateClassifier decides whether an image shows a paddy leaf.
type GateClassifier struct {
	scorer Scorer
}

func NewGateClassifier(s Scorer) *GateClassifier {
	return &GateClassifier{scorer: s}
}

// Size returns the resolution images must be normalized to before Score.
func (g *GateClassifier) Size() imaging.Size {
	return g.scorer.InputSize()
}

// Score returns the probability in [0,1] that the image is a paddy leaf.
func (g *GateClassifier) Score(t imaging.Tensor) (float64, error) {
	if err := checkShape(g.scorer, t); err != nil {
		return 0, err
	}

	out, err := g.scorer.Score(t)
	if err != nil {
		return 0, wrapInference(err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("%w: gate model returned no output", ErrInference)
	}

	score := float64(out[0])
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: gate score %v outside [0,1]", ErrInference, score)
	}
	return score, nil
}

// DiseaseClassifier picks one of the fixed disease labels for a paddy leaf.
type DiseaseClassifier struct {
	scorer Scorer
}

func NewDiseaseClassifier(s Scorer) *DiseaseClassifier {
	return &DiseaseClassifier{scorer: s}
}

// Size returns the resolution images must be normalized to before Score.
func (d *DiseaseClassifier) Size() imaging.Size {
	return d.scorer.InputSize()
}

// Score returns a probability per label, in Labels order, summing to 1.
func (d *DiseaseClassifier) Score(t imaging.Tensor) ([]float64, error) {
	if err := checkShape(d.scorer, t); err != nil {
		return nil, err
	}

	out, err := d.scorer.Score(t)
	if err != nil {
		return nil, wrapInference(err)
	}
	if len(out) != len(Labels) {
		return nil, fmt.Errorf("%w: disease model returned %d scores, want %d", ErrInference, len(out), len(Labels))
	}

	logits := make([]float64, len(out))
	for i, v := range out {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: disease score %d is %v", ErrInference, i, f)
		}
		logits[i] = f
	}

	return Softmax(logits), nil
}

// Diagnose scores t and returns the most probable label. Ties go to the
// label that comes first in Labels.
func (d *DiseaseClassifier) Diagnose(t imaging.Tensor) (DiseaseLabel, []float64, error) {
	probs, err := d.Score(t)
	if err != nil {
		return 0, nil, err
	}
	return Labels[ArgMax(probs)], probs, nil
}

// Softmax converts finite raw scores into a probability distribution. The
// input is not modified.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	hi := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// ArgMax returns the index of the largest value, preferring the lowest index
// on ties.
func ArgMax(v []float64) int {
	return floats.MaxIdx(v)
}

func wrapInference(err error) error {
	if errors.Is(err, ErrInference) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInference, err)
}
