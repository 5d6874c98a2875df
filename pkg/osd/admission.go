package osd

// StreamingTier returns the concurrency tier a new reservation would occupy
// on an OSD that already holds reservationCount reservations.
func StreamingTier(reservationCount int) int {
	return reservationCount + 1
}

// NextStreamingCeiling is the streaming throughput available at the tier the
// next reservation would occupy.
func (d *Description) NextStreamingCeiling() float64 {
	return d.capabilities.StreamingCeiling(StreamingTier(len(d.reservations)))
}

// HasFreeCapacity reports whether r fits next to the reservations already
// admitted. The streaming budget is taken from the tier r would occupy, so
// an OSD with all tiers in use rejects any reservation with a streaming
// claim. It never modifies d.
func (d *Description) HasFreeCapacity(r Reservation) bool {
	used := d.Committed()
	ceiling := d.NextStreamingCeiling()

	if used.Capacity+r.Capacity > d.capabilities.Capacity {
		return false
	}
	if used.RandomThroughput+r.RandomThroughput > d.capabilities.RandomThroughput {
		return false
	}
	if used.StreamingThroughput+r.StreamingThroughput > ceiling {
		return false
	}
	return true
}

// Admits is a function form of HasFreeCapacity.
func Admits(d *Description, r Reservation) bool {
	return d.HasFreeCapacity(r)
}

// FreeResources reports unreserved resources. Capacity and IOPS are plain
// balances and go negative when the OSD is oversubscribed; SeqTP is the room
// left for one more stream and is clamped at 0.
func (d *Description) FreeResources() FreeResources {
	used := d.Committed()

	seqTP := d.NextStreamingCeiling() - used.StreamingThroughput
	if seqTP < 0 {
		seqTP = 0
	}

	return FreeResources{
		Capacity: d.capabilities.Capacity - used.Capacity,
		IOPS:     d.capabilities.RandomThroughput - used.RandomThroughput,
		SeqTP:    seqTP,
	}
}
