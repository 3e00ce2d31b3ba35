// Package types contains read models shared by the service and the HTTP API.
package types

import "time"

// RankedLead is one row of the sales prioritisation list.
type RankedLead struct {
	Rank               int       `json:"rank"`
	LeadID             string    `json:"lead_id"`
	TenantID           string    `json:"tenant_id,omitempty"`
	TotalScore         float64   `json:"total_score"`
	QualificationLevel string    `json:"qualification_level"`
	ComputedAt         time.Time `json:"computed_at"`
}

// EnqueueAck acknowledges an asynchronous scoring request.
type EnqueueAck struct {
	SignalID  string `json:"signal_id"`
	LeadID    string `json:"lead_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
