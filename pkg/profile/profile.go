// Package profile loads storage node performance profiles from YAML files.
//
// A profile file is the output of benchmarking one OSD:
//
//	identifier: osd-1
//	type: ssd
//	capacity: 100GB
//	random_throughput: 5000
//	streaming_throughput: [200, 150, 100]
package profile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"osdsched/pkg/osd"
)

var (
	// ErrMissingIdentifier is returned when a profile does not name its OSD.
	ErrMissingIdentifier = errors.New("profile has no identifier")

	// ErrNegativeValue is returned when a profile contains a negative or non-finite resource value.
	ErrNegativeValue = errors.New("profile values must be finite and not negative")
)

// Size is a byte count written either as a plain number or with a unit ("100GB", "1.5 TiB").
type Size uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", node.Line)
	}

	bytes, err := humanize.ParseBytes(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid size %q: %w", node.Line, node.Value, err)
	}
	*s = Size(bytes)
	return nil
}

// String renders the size in SI units.
func (s Size) String() string {
	return humanize.Bytes(uint64(s))
}

// File is the on-disk form of a profile.
type File struct {
	Identifier          string    `yaml:"identifier"`
	Type                string    `yaml:"type"`
	Capacity            Size      `yaml:"capacity"`
	RandomThroughput    float64   `yaml:"random_throughput"`
	StreamingThroughput []float64 `yaml:"streaming_throughput"`
}

// Load reads a profile file and builds a fresh descriptor from it.
func Load(path string) (*osd.Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	desc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// Parse builds a descriptor from YAML profile data. Unknown types map to UNKNOWN.
func Parse(data []byte) (*osd.Description, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if err := file.validate(); err != nil {
		return nil, err
	}

	return osd.NewDescription(file.Identifier, file.Profile(), osd.ParseType(strings.ToUpper(file.Type))), nil
}

// Profile converts the file into a performance profile.
func (f *File) Profile() osd.PerformanceProfile {
	tiers := make([]float64, len(f.StreamingThroughput))
	copy(tiers, f.StreamingThroughput)

	return osd.PerformanceProfile{
		Capacity:            float64(f.Capacity),
		RandomThroughput:    f.RandomThroughput,
		StreamingThroughput: tiers,
	}
}

// validate reports every problem of the file at once.
func (f *File) validate() error {
	var err error
	if f.Identifier == "" {
		err = multierr.Append(err, ErrMissingIdentifier)
	}
	if invalid(f.RandomThroughput) {
		err = multierr.Append(err, fmt.Errorf("random_throughput: %w", ErrNegativeValue))
	}
	for i, tier := range f.StreamingThroughput {
		if invalid(tier) {
			err = multierr.Append(err, fmt.Errorf("streaming_throughput tier %d: %w", i+1, ErrNegativeValue))
		}
	}
	return err
}

func invalid(value float64) bool {
	return value < 0 || math.IsNaN(value) || math.IsInf(value, 0)
}
