package api

import (
	"github.com/mattjoyce/lingua/internal/invoke"
	"github.com/mattjoyce/lingua/internal/journal"
)

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Pool          invoke.Stats `json:"pool"`
	Languages     []string     `json:"languages"`
}

// RequestListResponse is returned by GET /meta/requests.
type RequestListResponse struct {
	Requests []journal.Entry `json:"requests"`
}
