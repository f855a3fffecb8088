// Package model defines all shared domain types for Watchpost.
package model

import "time"

// Alert categories. Every stored alert carries exactly one of these.
const (
	CategoryAuth     = "auth"
	CategoryProcess  = "process"
	CategoryNetwork  = "network"
	CategoryResource = "resource"
)

// Documented severity labels. Agents may submit other strings; they are
// lower-cased and stored as-is rather than rejected.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
	SeverityInfo   = "info"
)

// Host roster status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MetricSample is one utilization snapshot from a host. Percentages are nil
// when the agent did not report them — zero is a valid reading and must not
// stand in for "no data".
type MetricSample struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	OS        string    `json:"os"`
	CPUPct    *float64  `json:"cpu_pct"`
	MemPct    *float64  `json:"mem_pct"`
	DiskPct   *float64  `json:"disk_pct"`
	Timestamp time.Time `json:"timestamp"` // server-assigned, reporting zone
}

// AlertRecord is one normalized security or operational event.
type AlertRecord struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	OS        string    `json:"os"`
	Source    string    `json:"source,omitempty"`
	Category  string    `json:"category"`
	EventID   *int64    `json:"event_id,omitempty"`
	EventName string    `json:"event_name,omitempty"`
	Severity  string    `json:"severity"`
	Username  string    `json:"username,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Process   string    `json:"process,omitempty"`
	Message   string    `json:"message,omitempty"`
	Raw       string    `json:"raw"` // original alert object, verbatim JSON
	Timestamp time.Time `json:"timestamp"`
}

// HostStatus is a derived roster entry: one per distinct (host, os) pair,
// with the most recent telemetry timestamp and a recency classification.
type HostStatus struct {
	Host     string    `json:"host"`
	OS       string    `json:"os"`
	LastSeen time.Time `json:"last_seen"`
	Status   string    `json:"status"` // "online" or "offline"
}

// KPISummary aggregates recent utilization and alert activity for the
// dashboard's headline cards.
type KPISummary struct {
	CPUPct       float64 `json:"cpu"`
	MemPct       float64 `json:"memory"`
	DiskPct      float64 `json:"disk"`
	ActiveAlerts int     `json:"activeAlerts"`
}

// Notification is a structured alert message pushed to notify providers.
type Notification struct {
	Host      string    `json:"host"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}
