package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"

	"osdsched/pkg/osd"
)

// ProfileTestSuite tests profile loading
type ProfileTestSuite struct {
	suite.Suite
	tempDir string
}

// SetupTest runs before each test
func (s *ProfileTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "profile-test-*")
	s.Require().NoError(err)
}

// TearDownTest runs after each test
func (s *ProfileTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *ProfileTestSuite) writeProfile(content string) string {
	path := filepath.Join(s.tempDir, "profile.yml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad tests a complete profile
func (s *ProfileTestSuite) TestLoad() {
	path := s.writeProfile(`
identifier: osd-1
type: ssd
capacity: 100GB
random_throughput: 5000
streaming_throughput: [200, 150, 100]
`)

	desc, err := Load(path)
	s.Require().NoError(err)

	s.Equal("osd-1", desc.Identifier())
	s.Equal(osd.TypeSSD, desc.Type())
	s.Equal(osd.UsageUnused, desc.Usage())
	s.Empty(desc.Reservations())
	s.Equal(osd.PerformanceProfile{
		Capacity:            100e9,
		RandomThroughput:    5000,
		StreamingThroughput: []float64{200, 150, 100},
	}, desc.Capabilities())
}

// TestParseSizes tests the accepted capacity spellings
func (s *ProfileTestSuite) TestParseSizes() {
	testCases := []struct {
		value    string
		expected float64
	}{
		{value: "1024", expected: 1024},
		{value: "1.5 kB", expected: 1500},
		{value: "2GiB", expected: 2 << 30},
		{value: "\"10 TB\"", expected: 10e12},
	}

	for _, tc := range testCases {
		s.Run(tc.value, func() {
			desc, err := Parse([]byte("identifier: osd-1\ncapacity: " + tc.value + "\n"))
			s.Require().NoError(err)
			s.Equal(tc.expected, desc.Capabilities().Capacity)
		})
	}
}

// TestParseTypes tests type names
func (s *ProfileTestSuite) TestParseTypes() {
	testCases := map[string]osd.Type{
		"disk": osd.TypeDisk,
		"DISK": osd.TypeDisk,
		"Ssd":  osd.TypeSSD,
		"nvme": osd.TypeUnknown,
		"\"\"": osd.TypeUnknown,
	}

	for name, expected := range testCases {
		s.Run(name, func() {
			desc, err := Parse([]byte("identifier: osd-1\ntype: " + name + "\n"))
			s.Require().NoError(err)
			s.Equal(expected, desc.Type())
		})
	}
}

// TestParseWithoutTiers tests a profile with no streaming tiers
func (s *ProfileTestSuite) TestParseWithoutTiers() {
	desc, err := Parse([]byte("identifier: osd-1\ncapacity: 10GB\n"))
	s.Require().NoError(err)
	s.Equal(0, desc.Capabilities().Tiers())
	s.Equal(0.0, desc.NextStreamingCeiling())
}

// TestParseErrors tests rejected profiles
func (s *ProfileTestSuite) TestParseErrors() {
	testCases := []struct {
		name    string
		content string
		target  error
	}{
		{name: "missing identifier", content: "capacity: 1GB\n", target: ErrMissingIdentifier},
		{name: "negative random", content: "identifier: a\nrandom_throughput: -1\n", target: ErrNegativeValue},
		{name: "negative tier", content: "identifier: a\nstreaming_throughput: [1, -2]\n", target: ErrNegativeValue},
		{name: "nan tier", content: "identifier: a\nstreaming_throughput: [.nan]\n", target: ErrNegativeValue},
		{name: "inf random", content: "identifier: a\nrandom_throughput: .inf\n", target: ErrNegativeValue},
		{name: "bad size", content: "identifier: a\ncapacity: lots\n"},
		{name: "size list", content: "identifier: a\ncapacity: [1, 2]\n"},
		{name: "not yaml", content: "identifier: [\n"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := Parse([]byte(tc.content))
			s.Require().Error(err)
			if tc.target != nil {
				s.True(errors.Is(err, tc.target), err.Error())
			}
		})
	}
}

// TestParseReportsAllProblems tests that validation does not stop at the first error
func (s *ProfileTestSuite) TestParseReportsAllProblems() {
	_, err := Parse([]byte("random_throughput: -1\nstreaming_throughput: [-1, 2, -3]\n"))
	s.Require().Error(err)

	errs := multierr.Errors(err)
	s.Len(errs, 4)
	s.True(errors.Is(err, ErrMissingIdentifier))
	s.True(errors.Is(err, ErrNegativeValue))
	s.Contains(err.Error(), "streaming_throughput tier 3")
}

// TestLoadErrors tests file level failures
func (s *ProfileTestSuite) TestLoadErrors() {
	_, err := Load(filepath.Join(s.tempDir, "missing.yml"))
	s.True(errors.Is(err, os.ErrNotExist))

	path := s.writeProfile("capacity: 1GB\n")
	_, err = Load(path)
	s.True(errors.Is(err, ErrMissingIdentifier))
	s.Contains(err.Error(), path)
}

// TestSizeString tests size rendering
func (s *ProfileTestSuite) TestSizeString() {
	s.Equal("100 GB", Size(100e9).String())
}

// TestProfileSuite runs the profile test suite
func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileTestSuite))
}
