package models

import "github.com/ctwarden/ctwarden/internal/stats"

// StatsResponse is the /stats payload: the same pipeline counters the
// console/webhook reporters emit, plus a gopsutil host sample.
type StatsResponse struct {
	Snapshot stats.Snapshot     `json:"pipeline"`
	Host     stats.HostSnapshot `json:"host"`
}
