// Package paddy implements the two-stage paddy leaf diagnosis: a gate model
// decides whether the image is a paddy leaf at all, then a disease model picks
// one of the fixed labels and the catalog supplies treatment advice.
package paddy

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/Brownie44l1/paddy-api/internal/imaging"
	"github.com/Brownie44l1/paddy-api/internal/monitoring"
)

// NotPaddyLabel is the label reported when the gate rejects an image.
const NotPaddyLabel = "not_paddy_leaf"

// Verdict is the terminal state of a classification.
type Verdict int

const (
	VerdictNotPaddy Verdict = iota
	VerdictDiagnosed
)

func (v Verdict) String() string {
	switch v {
	case VerdictNotPaddy:
		return "not_paddy"
	case VerdictDiagnosed:
		return "diagnosed"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Result is the outcome of one classification. Label and Recommendation are
// only meaningful when Verdict is VerdictDiagnosed.
type Result struct {
	Verdict Verdict

	// Confidence is 1 - gate score for a rejected image, otherwise the
	// probability of the chosen label.
	Confidence float64

	Label          DiseaseLabel
	Recommendation Recommendation

	// GateScore is the raw gate output.
	GateScore float64
	// Probabilities holds the disease distribution in Labels order. Nil when
	// the gate rejected the image.
	Probabilities []float64
}

// IsPaddy reports whether the gate accepted the image.
func (r Result) IsPaddy() bool {
	return r.Verdict == VerdictDiagnosed
}

// LabelName returns the wire label: NotPaddyLabel or the disease name.
func (r Result) LabelName() string {
	if !r.IsPaddy() {
		return NotPaddyLabel
	}
	return r.Label.String()
}

type notPaddyJSON struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type diagnosisJSON struct {
	Label    string `json:"label"`
	Chemical string `json:"chemical"`
	Organic  string `json:"organic"`
}

// MarshalJSON emits {label, confidence} for a rejected image and
// {label, chemical, organic} for a diagnosis.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.IsPaddy() {
		return json.Marshal(notPaddyJSON{Label: NotPaddyLabel, Confidence: r.Confidence})
	}
	return json.Marshal(diagnosisJSON{
		Label:    r.Label.String(),
		Chemical: r.Recommendation.Chemical,
		Organic:  r.Recommendation.Organic,
	})
}

// Config holds the loaded models and the recommendation table. Both scorers
// are shared by every request.
type Config struct {
	Gate    Scorer
	Disease Scorer
	Catalog *Catalog
}

// Pipeline runs the gate and disease stages for one image at a time. It is
// safe for concurrent use if its scorers are.
type Pipeline struct {
	gate    *GateClassifier
	disease *DiseaseClassifier
	catalog *Catalog
}

// NewPipeline checks that the scorers expect the fixed stage resolutions and
// builds a Pipeline. A nil Catalog uses DefaultCatalog.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Gate == nil {
		return nil, errors.New("gate scorer is required")
	}
	if cfg.Disease == nil {
		return nil, errors.New("disease scorer is required")
	}
	if got := cfg.Gate.InputSize(); got != GateSize {
		return nil, fmt.Errorf("gate scorer expects %v input, want %v", got, GateSize)
	}
	if got := cfg.Disease.InputSize(); got != DiseaseSize {
		return nil, fmt.Errorf("disease scorer expects %v input, want %v", got, DiseaseSize)
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	return &Pipeline{
		gate:    NewGateClassifier(cfg.Gate),
		disease: NewDiseaseClassifier(cfg.Disease),
		catalog: catalog,
	}, nil
}

// Classify decodes data and runs it through both stages. Errors wrap either
// ErrDecode or ErrInference.
func (p *Pipeline) Classify(data []byte) (Result, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return Result{}, err
	}
	return p.classifyImage(img)
}

// classifyImage runs an already decoded image through both stages.
func (p *Pipeline) classifyImage(img image.Image) (Result, error) {
	score, err := p.gate.Score(imaging.Normalize(img, p.gate.Size()))
	if err != nil {
		return Result{}, fmt.Errorf("gate stage: %w", err)
	}

	if score < GateThreshold {
		monitoring.Logf("%s: gate=%.4f", VerdictNotPaddy, score)
		return Result{
			Verdict:    VerdictNotPaddy,
			Confidence: 1 - score,
			GateScore:  score,
		}, nil
	}

	// The disease model was trained at a different resolution, so the source
	// image is normalized again rather than reusing the gate tensor.
	label, probs, err := p.disease.Diagnose(imaging.Normalize(img, p.disease.Size()))
	if err != nil {
		return Result{}, fmt.Errorf("disease stage: %w", err)
	}

	monitoring.Logf("%s %s: gate=%.4f p=%.4f", VerdictDiagnosed, label, score, probs[label])

	return Result{
		Verdict:        VerdictDiagnosed,
		Confidence:     probs[label],
		Label:          label,
		Recommendation: p.catalog.Lookup(label),
		GateScore:      score,
		Probabilities:  probs,
	}, nil
}
