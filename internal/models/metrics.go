// Package models defines the report structures used throughout the agent.
// These structures are serialized to JSON for transmission to the collector.
package models

// DynamicSample holds the per-cycle metrics that change between reports.
type DynamicSample struct {
	CPUUsage         float64 `json:"cpu_usage"`
	MemUsagePercent  float64 `json:"mem_usage_percent"`
	DiskUsagePercent float64 `json:"disk_usage_percent"`
	Uptime           string  `json:"uptime"`
	LoadAvg          float64 `json:"load_avg"`
	Processes        int     `json:"processes"`
	Connections      int     `json:"connections"`
}

// NetworkCounterSnapshot is a reading of cumulative interface byte counters.
type NetworkCounterSnapshot struct {
	BytesSent uint64
	BytesRecv uint64
}

// NetworkUsage holds the rates derived from two counter snapshots and the
// cumulative totals of the later one. Rates are signed: a counter reset
// between the snapshots yields a negative value.
type NetworkUsage struct {
	UpSpeed   int64  `json:"net_up_speed"`
	DownSpeed int64  `json:"net_down_speed"`
	TotalUp   uint64 `json:"total_up"`
	TotalDown uint64 `json:"total_down"`
}

// StaticInventory holds host facts that do not change while the agent runs.
type StaticInventory struct {
	CPUModel       string `json:"cpu_model"`
	CPUCores       int    `json:"cpu_cores"`
	MemTotalBytes  uint64 `json:"mem_total_bytes"`
	DiskTotalBytes uint64 `json:"disk_total_bytes"`
	System         string `json:"system"`
	Arch           string `json:"arch"`
}

// Identity is the static credential pair sent with every report.
type Identity struct {
	ServerID string `json:"server_id"`
	Secret   string `json:"secret"`
}

// ReportPayload is the body POSTed to the report endpoint.
// The embedded structs are flattened into the top-level JSON object.
type ReportPayload struct {
	Identity
	DynamicSample
	NetworkUsage
	StaticInfo *StaticInventory `json:"static_info,omitempty"`
}

// ReportOutcome is the classified result of one delivery attempt.
type ReportOutcome struct {
	StatusCode int
	Body       string
}
