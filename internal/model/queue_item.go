// internal/model/queue_item.go
package model

import (
	"fmt"
	"time"
)

type QueueStatus string

const (
	QueueReady         QueueStatus = "ready"
	QueueDialingIntent QueueStatus = "dialing_intent"
	QueueIntentYes     QueueStatus = "intent_yes"
	QueueIntentNo      QueueStatus = "intent_no"
	QueueIntentUnknown QueueStatus = "intent_unknown"
	QueueConsumed      QueueStatus = "consumed"
	QueueFailed        QueueStatus = "failed"
	QueueScheduled     QueueStatus = "scheduled"
)

// ELIGIBLE is not a persisted status: a lead with no queue_items row is the
// backlog. LOCKED is not a status either, it is the locked_by/locked_at pair.

var terminalQueueStatuses = map[QueueStatus]bool{
	QueueConsumed: true,
	QueueFailed:   true,
}

var validQueueTransitions = map[QueueStatus]map[QueueStatus]bool{
	QueueReady: {
		QueueDialingIntent: true,
		QueueScheduled:     true,
		QueueFailed:        true,
	},
	QueueDialingIntent: {
		QueueReady:         true, // dispatch failure with retries left
		QueueScheduled:     true, // retry cooldown
		QueueIntentYes:     true,
		QueueIntentNo:      true,
		QueueIntentUnknown: true,
		QueueFailed:        true,
	},
	QueueIntentYes: {
		QueueConsumed:  true,
		QueueScheduled: true,
		QueueFailed:    true,
	},
	QueueIntentNo: {
		QueueConsumed:  true,
		QueueScheduled: true,
		QueueFailed:    true,
	},
	QueueIntentUnknown: {
		QueueConsumed:  true,
		QueueScheduled: true,
		QueueFailed:    true,
	},
	QueueScheduled: {
		QueueReady:  true, // wake
		QueueFailed: true,
	},
}

func IsQueueTerminal(s QueueStatus) bool {
	return terminalQueueStatuses[s]
}

// CountsTowardTarget is the canonical "completed" rule used everywhere a
// cohort's progress is compared to its target: the call reached a verdict.
// Failed items never count.
func CountsTowardTarget(s QueueStatus) bool {
	switch s {
	case QueueIntentYes, QueueIntentNo, QueueIntentUnknown, QueueConsumed:
		return true
	}
	return false
}

func ValidateQueueTransition(from, to QueueStatus) error {
	if IsQueueTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	allowed, ok := validQueueTransitions[from]
	if !ok {
		return fmt.Errorf("unknown queue status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid queue transition: %q -> %q", from, to)
	}
	return nil
}

// QueueItem is the unit the core owns end-to-end, one per (campaign, lead).
type QueueItem struct {
	ID             int         `db:"id" json:"id"`
	CampaignID     int         `db:"campaign_id" json:"campaign_id"`
	LeadID         int         `db:"lead_id" json:"lead_id"`
	CohortID       int         `db:"cohort_id" json:"cohort_id"`
	Status         QueueStatus `db:"status" json:"status"`
	PriorityScore  int         `db:"priority_score" json:"priority_score"`
	ExecutionCount int         `db:"execution_count" json:"execution_count"`
	ScheduledFor   *time.Time  `db:"scheduled_for" json:"scheduled_for,omitempty"`
	LockedBy       string      `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt       *time.Time  `db:"locked_at" json:"locked_at,omitempty"`
	PromotedAt     *time.Time  `db:"promoted_at" json:"promoted_at,omitempty"`
	Outcome        string      `db:"outcome" json:"outcome,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}
