package models

// ReservationRequest asks for a reservation on one OSD.
// ID is optional; the scheduler generates one when empty.
type ReservationRequest struct {
	ID                  string  `json:"id,omitempty"`
	Capacity            float64 `json:"capacity"`
	RandomThroughput    float64 `json:"random_throughput"`
	StreamingThroughput float64 `json:"streaming_throughput"`
}

// Valid reports whether all claims are non-negative.
func (r ReservationRequest) Valid() bool {
	return r.Capacity >= 0 && r.RandomThroughput >= 0 && r.StreamingThroughput >= 0
}

// UsageRequest changes the workload class of an OSD.
type UsageRequest struct {
	Usage string `json:"usage"`
}
