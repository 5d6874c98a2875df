package osd

import (
	"math"
	"strconv"
)

// Type is the storage medium of an OSD.
type Type int

const (
	TypeDisk Type = iota
	TypeSSD
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeDisk:
		return "DISK"
	case TypeSSD:
		return "SSD"
	default:
		return "UNKNOWN"
	}
}

// ParseType maps a case-sensitive name back to a Type. Unrecognized names yield TypeUnknown.
func ParseType(name string) Type {
	switch name {
	case "DISK":
		return TypeDisk
	case "SSD":
		return TypeSSD
	default:
		return TypeUnknown
	}
}

// Usage is the workload class an OSD is currently assigned to.
type Usage int

const (
	UsageRandomIO Usage = iota
	UsageStreaming
	UsageBestEffort
	UsageAll
	UsageUnused
)

func (u Usage) String() string {
	switch u {
	case UsageRandomIO:
		return "RANDOM_IO"
	case UsageStreaming:
		return "STREAMING"
	case UsageBestEffort:
		return "BEST_EFFORT"
	case UsageAll:
		return "ALL"
	default:
		return "UNUSED"
	}
}

// ParseUsage maps a name back to a Usage. ok is false for unknown names.
func ParseUsage(name string) (Usage, bool) {
	switch name {
	case "RANDOM_IO":
		return UsageRandomIO, true
	case "STREAMING":
		return UsageStreaming, true
	case "BEST_EFFORT":
		return UsageBestEffort, true
	case "ALL":
		return UsageAll, true
	case "UNUSED":
		return UsageUnused, true
	default:
		return UsageUnused, false
	}
}

// PerformanceProfile describes what an OSD can deliver.
// StreamingThroughput[i] is the aggregate streaming throughput with i+1
// concurrent reservations.
type PerformanceProfile struct {
	Capacity            float64   `json:"capacity"`
	RandomThroughput    float64   `json:"random_throughput"`
	StreamingThroughput []float64 `json:"streaming_throughput"`
}

// Tiers returns the number of defined streaming tiers.
func (p PerformanceProfile) Tiers() int {
	return len(p.StreamingThroughput)
}

// StreamingCeiling returns the streaming throughput of a 1-based tier.
// Tiers outside the profile have a ceiling of 0; there is no extrapolation.
func (p PerformanceProfile) StreamingCeiling(tier int) float64 {
	if tier < 1 || tier > len(p.StreamingThroughput) {
		return 0
	}
	return p.StreamingThroughput[tier-1]
}

// Validate reports the first NaN or infinite value in the profile.
// Admission comparisons against such values are meaningless.
func (p PerformanceProfile) Validate() error {
	if !finite(p.Capacity) {
		return &ProfileError{Field: "capacity", Value: p.Capacity}
	}
	if !finite(p.RandomThroughput) {
		return &ProfileError{Field: "random throughput", Value: p.RandomThroughput}
	}
	for i, tier := range p.StreamingThroughput {
		if !finite(tier) {
			return &ProfileError{Field: "streaming tier " + strconv.Itoa(i+1), Value: tier}
		}
	}
	return nil
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// Clone returns a deep copy of the profile.
func (p PerformanceProfile) Clone() PerformanceProfile {
	tiers := make([]float64, len(p.StreamingThroughput))
	copy(tiers, p.StreamingThroughput)
	p.StreamingThroughput = tiers
	return p
}

// Reservation is a committed claim on an OSD.
type Reservation struct {
	ID                  string  `json:"id"`
	Capacity            float64 `json:"capacity"`
	RandomThroughput    float64 `json:"random_throughput"`
	StreamingThroughput float64 `json:"streaming_throughput"`
}

// sameClaim reports whether two reservations claim the same amounts.
func (r Reservation) sameClaim(other Reservation) bool {
	return r.Capacity == other.Capacity &&
		r.RandomThroughput == other.RandomThroughput &&
		r.StreamingThroughput == other.StreamingThroughput
}

// Totals is the sum of the claims of a set of reservations.
type Totals struct {
	Capacity            float64
	RandomThroughput    float64
	StreamingThroughput float64
}

// FreeResources is a point-in-time view of unreserved resources.
type FreeResources struct {
	Capacity float64 `json:"capacity"`
	IOPS     float64 `json:"iops"`
	SeqTP    float64 `json:"seq_tp"`
}
