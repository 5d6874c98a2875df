// Package osd models the resources of a single object storage device and
// the reservations admitted against it.
//
// A Description is not safe for concurrent use. Callers that share one
// between goroutines must serialize HasFreeCapacity and Allocate per
// descriptor, see package registry.
package osd

import (
	"github.com/google/uuid"
)

// Description is the scheduler's view of one OSD.
type Description struct {
	identifier   string
	osdType      Type
	usage        Usage
	capabilities PerformanceProfile
	reservations []Reservation
}

// NewDescription creates an unused descriptor with an empty ledger.
func NewDescription(identifier string, capabilities PerformanceProfile, osdType Type) *Description {
	return &Description{
		identifier:   identifier,
		osdType:      osdType,
		usage:        UsageUnused,
		capabilities: capabilities.Clone(),
		reservations: make([]Reservation, 0),
	}
}

func (d *Description) Identifier() string {
	return d.identifier
}

func (d *Description) Type() Type {
	return d.osdType
}

// SetType changes the medium, e.g. after a node re-announces itself.
func (d *Description) SetType(osdType Type) {
	d.osdType = osdType
}

func (d *Description) Usage() Usage {
	return d.usage
}

func (d *Description) SetUsage(usage Usage) {
	d.usage = usage
}

// Capabilities returns a copy of the performance profile.
func (d *Description) Capabilities() PerformanceProfile {
	return d.capabilities.Clone()
}

// SetCapabilities replaces the profile wholesale. The ledger is kept.
func (d *Description) SetCapabilities(capabilities PerformanceProfile) {
	d.capabilities = capabilities.Clone()
}

// Reservations returns a copy of the ledger in allocation order.
func (d *Description) Reservations() []Reservation {
	out := make([]Reservation, len(d.reservations))
	copy(out, d.reservations)
	return out
}

// ReservationCount returns the number of admitted reservations.
func (d *Description) ReservationCount() int {
	return len(d.reservations)
}

// Allocate appends r to the ledger and returns the stored reservation.
// It does not re-check capacity: callers must have called HasFreeCapacity
// first, otherwise the OSD may be oversubscribed.
// An ID is generated when r has none.
func (d *Description) Allocate(r Reservation) Reservation {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	d.reservations = append(d.reservations, r)
	return r
}

// Remove drops the first reservation matching r. Reservations carrying an
// ID are matched by ID, others by their claimed amounts. Removing an absent
// reservation is a no-op and returns false.
func (d *Description) Remove(r Reservation) bool {
	for i, existing := range d.reservations {
		matched := existing.ID == r.ID
		if r.ID == "" {
			matched = existing.sameClaim(r)
		}
		if matched {
			d.reservations = append(d.reservations[:i], d.reservations[i+1:]...)
			return true
		}
	}
	return false
}

// Release removes the reservation with the given ID.
func (d *Description) Release(id string) bool {
	if id == "" {
		return false
	}
	return d.Remove(Reservation{ID: id})
}

// Reset clears the ledger and marks the OSD unused. Identifier, type and
// profile are left untouched.
func (d *Description) Reset() {
	d.reservations = make([]Reservation, 0)
	d.usage = UsageUnused
}

// Committed sums the claims of all admitted reservations.
func (d *Description) Committed() Totals {
	var totals Totals
	for _, r := range d.reservations {
		totals.Capacity += r.Capacity
		totals.RandomThroughput += r.RandomThroughput
		totals.StreamingThroughput += r.StreamingThroughput
	}
	return totals
}
