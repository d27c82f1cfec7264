package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Brownie44l1/paddy-api/internal/imaging"
)

// Metadata describes an exported model: tensor names and shapes, and for
// multi-class models the class names in output order.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// LoadMetadata reads and validates a metadata JSON file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}

	if err := md.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata %s: %w", path, err)
	}
	return md, nil
}

// Validate checks the input is a single NHWC RGB image and the output shape
// is usable.
func (m Metadata) Validate() error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input_shape must have 4 dims (N,H,W,C), got %v", m.InputShape)
	}
	if m.InputShape[0] != 1 {
		return fmt.Errorf("input batch dimension must be 1, got %d", m.InputShape[0])
	}
	if m.InputShape[1] <= 0 || m.InputShape[2] <= 0 {
		return fmt.Errorf("input height and width must be positive, got %v", m.InputShape)
	}
	if m.InputShape[3] != imaging.Channels {
		return fmt.Errorf("input must have %d channels, got %d", imaging.Channels, m.InputShape[3])
	}
	if m.ImageSize != 0 && (int64(m.ImageSize) != m.InputShape[1] || int64(m.ImageSize) != m.InputShape[2]) {
		return fmt.Errorf("image_size %d does not match input_shape %v", m.ImageSize, m.InputShape)
	}

	if len(m.OutputShape) == 0 {
		return fmt.Errorf("output_shape is empty")
	}
	for _, d := range m.OutputShape {
		if d <= 0 {
			return fmt.Errorf("output_shape dims must be positive, got %v", m.OutputShape)
		}
	}
	if len(m.Classes) > 0 && int64(len(m.Classes)) != m.OutputLen() {
		return fmt.Errorf("%d classes for %d outputs", len(m.Classes), m.OutputLen())
	}
	return nil
}

// InputSize returns the image resolution the model was trained on.
func (m Metadata) InputSize() imaging.Size {
	return imaging.Size{Width: int(m.InputShape[2]), Height: int(m.InputShape[1])}
}

// OutputLen returns the number of values in the output tensor.
func (m Metadata) OutputLen() int64 {
	n := int64(1)
	for _, d := range m.OutputShape {
		n *= d
	}
	return n
}

// CheckClasses verifies the model's class list matches want exactly,
// including order.
func (m Metadata) CheckClasses(want []string) error {
	if len(m.Classes) != len(want) {
		return fmt.Errorf("model has %d classes, want %d", len(m.Classes), len(want))
	}
	for i := range want {
		if m.Classes[i] != want[i] {
			return fmt.Errorf("class %d is %q, want %q", i, m.Classes[i], want[i])
		}
	}
	return nil
}
