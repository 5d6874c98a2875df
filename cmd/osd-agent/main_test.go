package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// AgentFlagsTestSuite tests command-line validation
type AgentFlagsTestSuite struct {
	suite.Suite
}

// TestValidateFlags tests scheduler URL and interval checks
func (s *AgentFlagsTestSuite) TestValidateFlags() {
	testCases := []struct {
		name      string
		scheduler string
		interval  time.Duration
		expected  error
	}{
		{name: "valid http", scheduler: "http://localhost:8080", interval: 30 * time.Second},
		{name: "valid https", scheduler: "https://scheduler", interval: time.Millisecond},
		{name: "missing scheme", scheduler: "localhost:8080", interval: time.Second, expected: errSchedulerScheme},
		{name: "zero interval", scheduler: "http://localhost:8080", interval: 0, expected: errInterval},
		{name: "negative interval", scheduler: "http://localhost:8080", interval: -time.Second, expected: errInterval},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := validateFlags(tc.scheduler, tc.interval)
			if tc.expected == nil {
				s.NoError(err)
				return
			}
			s.ErrorIs(err, tc.expected)
		})
	}
}

// TestAgentFlagsSuite runs the agent flags test suite
func TestAgentFlagsSuite(t *testing.T) {
	suite.Run(t, new(AgentFlagsTestSuite))
}
