// internal/model/call_log.go
package model

import "time"

// CallLog is the durable, user-facing summary of a completed call. Write-once
// per external call id; duplicate webhook delivery must not add rows.
type CallLog struct {
	ID             int       `db:"id" json:"id"`
	CampaignID     int       `db:"campaign_id" json:"campaign_id"`
	LeadID         int       `db:"lead_id" json:"lead_id"`
	QueueItemID    int       `db:"queue_item_id" json:"queue_item_id"`
	ExternalCallID string    `db:"external_call_id" json:"external_call_id"`
	Outcome        string    `db:"outcome" json:"outcome"`
	DurationSec    int       `db:"duration_sec" json:"duration_sec"`
	Cost           float64   `db:"cost" json:"cost"`
	Summary        string    `db:"summary" json:"summary"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
