package registry

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"osdsched/pkg/log"
)

// Start runs one report synchronously and then keeps reporting in the background.
func (r *Registry) Start() {
	r.checkStale()
	r.report()

	r.wg.Add(1)
	go r.reportLoop()

	log.Info().
		Int("osd_count", r.Count()).
		Dur("interval", r.reportInterval).
		Dur("stale_after", r.staleAfter).
		Msg("Registry started")
}

// Stop stops the background report loop.
func (r *Registry) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	log.Info().Msg("Registry stopped")
}

func (r *Registry) reportLoop() {
	defer r.wg.Done()

	ticker := r.clock.Ticker(r.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.checkStale()
			r.report()
		}
	}
}

// checkStale marks OSDs degraded when they have not announced within staleAfter.
// Statically registered OSDs are skipped.
func (r *Registry) checkStale() int {
	if r.staleAfter <= 0 {
		return 0
	}

	now := r.clock.Now()
	marked := 0
	for _, node := range r.entries() {
		node.mu.Lock()
		silence := now.Sub(node.lastAnnounce)
		if !node.static && !node.degraded && silence > r.staleAfter {
			node.degraded = true
			node.lastError = "no announcement for " + silence.Truncate(time.Second).String()
			marked++
			log.Warn().
				Str("osd", node.desc.Identifier()).
				Dur("silence", silence).
				Msg("OSD marked degraded")
		}
		node.mu.Unlock()
	}
	return marked
}

// report logs the free resources of every OSD.
func (r *Registry) report() {
	reportLog := log.Component("report")
	for _, status := range r.Statuses() {
		reportLog.Info().
			Str("osd", status.Identifier).
			Str("usage", status.Usage).
			Bool("degraded", status.Degraded).
			Int("reservations", len(status.Reservations)).
			Str("free_capacity", FormatBytes(status.Free.Capacity)).
			Float64("free_iops", status.Free.IOPS).
			Float64("free_seq_tp", status.Free.SeqTP).
			Msg("OSD free resources")
	}
}

// maxHumanBytes is the first magnitude that no longer fits a uint64.
const maxHumanBytes = float64(1 << 64)

// FormatBytes renders a possibly negative byte balance in SI units.
// Magnitudes beyond the uint64 range are printed as plain byte counts.
func FormatBytes(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "n/a"
	}

	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	if value >= maxHumanBytes {
		return sign + humanize.Commaf(value) + " B"
	}
	return sign + humanize.Bytes(uint64(value))
}
