package client

import (
	"context"
	"time"

	"osdsched/pkg/log"
	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

// Pusher delivers a descriptor to the scheduler. *Client implements it.
type Pusher interface {
	Announce(ctx context.Context, desc *osd.Description) (*models.NodeStatus, error)
}

// Source supplies the descriptor to announce. It is called before every push
// so that a re-benchmarked profile is picked up without restarting.
type Source func() (*osd.Description, error)

// Announcer pushes a storage node's descriptor to the scheduler periodically.
type Announcer struct {
	pusher   Pusher
	source   Source
	interval time.Duration
	trigger  chan struct{}
}

// NewAnnouncer creates an announcer pushing every interval.
func NewAnnouncer(pusher Pusher, source Source, interval time.Duration) *Announcer {
	return &Announcer{
		pusher:   pusher,
		source:   source,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Notify requests an announcement ahead of the next tick. Requests made
// while one is already pending are merged.
func (a *Announcer) Notify() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// Run announces immediately, then on every tick and on every Notify until ctx is done.
// Failed pushes are logged and retried on the next tick.
func (a *Announcer) Run(ctx context.Context) {
	a.announce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.announce(ctx)
		case <-a.trigger:
			a.announce(ctx)
			ticker.Reset(a.interval)
		}
	}
}

// announce performs one push and reports whether it succeeded.
func (a *Announcer) announce(ctx context.Context) bool {
	desc, err := a.source()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load descriptor")
		return false
	}

	status, err := a.pusher.Announce(ctx, desc)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("osd", desc.Identifier()).Msg("Announcement failed")
		}
		return false
	}

	log.Debug().
		Str("osd", status.Identifier).
		Int("reservations", len(status.Reservations)).
		Float64("free_capacity", status.Free.Capacity).
		Msg("Descriptor announced")
	return true
}
