package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"

	"osdsched/pkg/log"
	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

const (
	defaultReportInterval = 30 * time.Second
)

// entry owns one descriptor. Its mutex serializes admission and allocation
// so that two concurrent reservations cannot both pass the check.
type entry struct {
	mu           sync.Mutex
	desc         *osd.Description
	degraded     bool
	lastError    string
	lastAnnounce time.Time
	// static entries were registered in-process and are not expected to announce.
	static bool
}

// Registry tracks the descriptors of all OSDs known to the scheduler.
type Registry struct {
	nodes          map[string]*entry
	mu             sync.RWMutex
	staleAfter     time.Duration
	reportInterval time.Duration
	clock          clock.Clock
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// New creates an empty registry. A staleAfter of zero disables staleness checks.
func New(staleAfter, reportInterval time.Duration) *Registry {
	return NewWithClock(staleAfter, reportInterval, clock.New())
}

// NewWithClock creates an empty registry driven by clk.
func NewWithClock(staleAfter, reportInterval time.Duration, clk clock.Clock) *Registry {
	if reportInterval <= 0 {
		reportInterval = defaultReportInterval
	}

	return &Registry{
		nodes:          make(map[string]*entry),
		staleAfter:     staleAfter,
		reportInterval: reportInterval,
		clock:          clk,
		stopCh:         make(chan struct{}),
	}
}

// Register adds a descriptor built in-process, replacing any previous entry
// with the same identifier. Registered OSDs are exempt from the stale check
// until they announce themselves.
func (r *Registry) Register(desc *osd.Description) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes[desc.Identifier()] = &entry{
		desc:         desc,
		lastAnnounce: r.clock.Now(),
		static:       true,
	}

	log.Info().
		Str("osd", desc.Identifier()).
		Str("type", desc.Type().String()).
		Int("tiers", desc.Capabilities().Tiers()).
		Msg("OSD registered")
}

// Announce applies an encoded descriptor received from the OSD identified by id.
// A payload that cannot be decoded marks a known OSD degraded so that it is
// excluded from placement until it announces a valid descriptor again.
// A decodable payload with a NaN or infinite profile value is handled the same way.
// Known OSDs keep their reservations and usage; only type and profile are refreshed.
func (r *Registry) Announce(id string, payload []byte) (models.NodeStatus, error) {
	desc, err := osd.Decode(payload)
	if err != nil {
		r.MarkDegraded(id, err)
		return models.NodeStatus{}, err
	}

	if desc.Identifier() != id {
		log.Warn().
			Str("osd", id).
			Str("payload_identifier", desc.Identifier()).
			Msg("Descriptor identifier does not match announcing OSD")
		return models.NodeStatus{}, &IdentifierMismatchError{Expected: id, Actual: desc.Identifier()}
	}

	if err := desc.Capabilities().Validate(); err != nil {
		r.MarkDegraded(id, err)
		return models.NodeStatus{}, err
	}

	r.mu.Lock()
	node, exists := r.nodes[id]
	if !exists {
		node = &entry{desc: desc}
		r.nodes[id] = node
	}
	r.mu.Unlock()

	node.mu.Lock()
	defer node.mu.Unlock()

	if exists {
		node.desc.SetType(desc.Type())
		node.desc.SetCapabilities(desc.Capabilities())
	}

	wasDegraded := node.degraded
	node.static = false
	node.degraded = false
	node.lastError = ""
	node.lastAnnounce = r.clock.Now()

	switch {
	case !exists:
		log.Info().
			Str("osd", id).
			Str("type", desc.Type().String()).
			Int("tiers", desc.Capabilities().Tiers()).
			Msg("OSD registered")
	case wasDegraded:
		log.Info().Str("osd", id).Msg("OSD back online")
	default:
		log.Debug().Str("osd", id).Msg("OSD profile refreshed")
	}

	return node.status(), nil
}

// MarkDegraded excludes a known OSD from placement. Unknown identifiers are ignored.
func (r *Registry) MarkDegraded(id string, err error) {
	node, lookupErr := r.lookup(id)
	if lookupErr != nil {
		log.Warn().Err(err).Str("osd", id).Msg("Undecodable descriptor from unknown OSD")
		return
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	if !node.degraded {
		log.Warn().Err(err).Str("osd", id).Msg("OSD marked degraded")
	}
	node.degraded = true
	node.lastError = err.Error()
}

// Unregister forgets an OSD and its reservations.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; !exists {
		return false
	}
	delete(r.nodes, id)

	log.Info().Str("osd", id).Msg("OSD unregistered")
	return true
}

// Reserve admits and allocates res on one OSD as a single step.
// A rejection is reported as ok == false with a nil error.
func (r *Registry) Reserve(id string, res osd.Reservation) (osd.Reservation, bool, error) {
	node, err := r.lookup(id)
	if err != nil {
		return osd.Reservation{}, false, err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	if node.degraded {
		return osd.Reservation{}, false, ErrNodeDegraded
	}
	if res.ID != "" && node.holds(res.ID) {
		return osd.Reservation{}, false, ErrDuplicateReservation
	}

	if !node.desc.HasFreeCapacity(res) {
		log.Debug().
			Str("osd", id).
			Float64("capacity", res.Capacity).
			Float64("random_throughput", res.RandomThroughput).
			Float64("streaming_throughput", res.StreamingThroughput).
			Int("tier", osd.StreamingTier(node.desc.ReservationCount())).
			Msg("Reservation rejected")
		return osd.Reservation{}, false, nil
	}

	stored := node.desc.Allocate(res)

	log.Info().
		Str("osd", id).
		Str("reservation", stored.ID).
		Int("reservations", node.desc.ReservationCount()).
		Msg("Reservation allocated")

	return stored, true, nil
}

// Release drops a reservation by ID. Releasing an unknown reservation is not an error.
func (r *Registry) Release(id, reservationID string) (bool, error) {
	node, err := r.lookup(id)
	if err != nil {
		return false, err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	released := node.desc.Release(reservationID)
	if released {
		log.Info().Str("osd", id).Str("reservation", reservationID).Msg("Reservation released")
	}
	return released, nil
}

// Reset clears all reservations of an OSD and marks it unused.
func (r *Registry) Reset(id string) error {
	node, err := r.lookup(id)
	if err != nil {
		return err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	dropped := node.desc.ReservationCount()
	node.desc.Reset()

	log.Info().Str("osd", id).Int("dropped", dropped).Msg("OSD reset")
	return nil
}

// SetUsage changes the workload class of an OSD.
func (r *Registry) SetUsage(id string, usage osd.Usage) error {
	node, err := r.lookup(id)
	if err != nil {
		return err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	node.desc.SetUsage(usage)
	return nil
}

// FreeResources returns the unreserved resources of an OSD.
func (r *Registry) FreeResources(id string) (osd.FreeResources, error) {
	node, err := r.lookup(id)
	if err != nil {
		return osd.FreeResources{}, err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	return node.desc.FreeResources(), nil
}

// Encode returns the wire form of an OSD's descriptor, without reservations.
func (r *Registry) Encode(id string) ([]byte, error) {
	node, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	return osd.Encode(node.desc), nil
}

// Status returns a snapshot of one OSD.
func (r *Registry) Status(id string) (models.NodeStatus, error) {
	node, err := r.lookup(id)
	if err != nil {
		return models.NodeStatus{}, err
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	return node.status(), nil
}

// Statuses returns snapshots of all OSDs sorted by identifier.
func (r *Registry) Statuses() []models.NodeStatus {
	statuses := make([]models.NodeStatus, 0)
	for _, node := range r.entries() {
		node.mu.Lock()
		statuses = append(statuses, node.status())
		node.mu.Unlock()
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Identifier < statuses[j].Identifier
	})
	return statuses
}

// Count returns the number of known OSDs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[id]
	if !exists {
		return nil, ErrNodeNotFound
	}
	return node, nil
}

func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.nodes)
}

func (e *entry) holds(reservationID string) bool {
	return lo.ContainsBy(e.desc.Reservations(), func(existing osd.Reservation) bool {
		return existing.ID == reservationID
	})
}

// status must be called with e.mu held.
func (e *entry) status() models.NodeStatus {
	return models.NodeStatus{
		Identifier:   e.desc.Identifier(),
		Type:         e.desc.Type().String(),
		Usage:        e.desc.Usage().String(),
		Capabilities: e.desc.Capabilities(),
		Reservations: e.desc.Reservations(),
		Free:         e.desc.FreeResources(),
		Degraded:     e.degraded,
		LastError:    e.lastError,
		LastAnnounce: e.lastAnnounce,
	}
}
