// internal/model/user_queue_item.go
package model

import "time"

// UserQueueItem is a lead promoted to the human follow-up queue after an
// agreement verdict. At most one exists per originating QueueItem.
type UserQueueItem struct {
	ID               int        `db:"id" json:"id"`
	CampaignID       int        `db:"campaign_id" json:"campaign_id"`
	LeadID           int        `db:"lead_id" json:"lead_id"`
	QueueItemID      int        `db:"queue_item_id" json:"queue_item_id"`
	AISummary        string     `db:"ai_summary" json:"ai_summary"`
	IntentStrength   string     `db:"intent_strength" json:"intent_strength"`
	ConfirmationSlot *time.Time `db:"confirmation_slot" json:"confirmation_slot,omitempty"`
	RetriesLeft      int        `db:"retries_left" json:"retries_left"`
	ClosedAt         *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	LockedBy         string     `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt         *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
