package models

import (
	"time"

	"osdsched/pkg/osd"
)

// NodeStatus is the scheduler's view of one OSD as served over HTTP.
type NodeStatus struct {
	Identifier   string                 `json:"identifier"`
	Type         string                 `json:"type"`
	Usage        string                 `json:"usage"`
	Capabilities osd.PerformanceProfile `json:"capabilities"`
	Reservations []osd.Reservation      `json:"reservations"`
	Free         osd.FreeResources      `json:"free"`
	Degraded     bool                   `json:"degraded"`
	LastError    string                 `json:"last_error,omitempty"`
	LastAnnounce time.Time              `json:"last_announce"`
}

// NodeList wraps all known OSDs.
type NodeList struct {
	Nodes []NodeStatus `json:"nodes"`
}
