// internal/model/execution_record.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CallStatus is the provider-side call lifecycle.
type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallVoicemail CallStatus = "voicemail"
	CallNoAnswer  CallStatus = "no_answer"
	CallBusy      CallStatus = "busy"
)

var terminalCallStatuses = map[CallStatus]bool{
	CallCompleted: true,
	CallFailed:    true,
	CallVoicemail: true,
	CallNoAnswer:  true,
	CallBusy:      true,
}

// callStatusRank orders lifecycle progress so out-of-order webhook delivery
// can be detected: a lower-ranked event after a higher-ranked one is stale.
var callStatusRank = map[CallStatus]int{
	CallInitiated: 0,
	CallRinging:   1,
	CallConnected: 2,
	CallCompleted: 3,
	CallFailed:    3,
	CallVoicemail: 3,
	CallNoAnswer:  3,
	CallBusy:      3,
}

func IsCallTerminal(s CallStatus) bool {
	return terminalCallStatuses[s]
}

func IsCallOpen(s CallStatus) bool {
	_, known := callStatusRank[s]
	return known && !terminalCallStatuses[s]
}

// CallStatusStale reports whether an incoming status is stale relative to the
// currently stored one. Terminal states are sticky, and a same-rank repeat is
// treated as a duplicate.
func CallStatusStale(current, incoming CallStatus) bool {
	if IsCallTerminal(current) {
		return true
	}
	cr, ok := callStatusRank[current]
	if !ok {
		return false
	}
	ir, ok := callStatusRank[incoming]
	if !ok {
		return true
	}
	return ir <= cr
}

type ExtractedData map[string]string

func (d ExtractedData) Value() (driver.Value, error) { return json.Marshal(d) }

func (d *ExtractedData) Scan(src any) error { return scanJSON(src, d) }

// ExecutionRecord is one dispatch attempt. Append-only per attempt: a
// QueueItem accumulates one record per retry.
type ExecutionRecord struct {
	ID                int           `db:"id" json:"id"`
	QueueItemID       int           `db:"queue_item_id" json:"queue_item_id"`
	ExternalCallID    string        `db:"external_call_id" json:"external_call_id"`
	CallStatus        CallStatus    `db:"call_status" json:"call_status"`
	ExtractedData     ExtractedData `db:"extracted_data" json:"extracted_data,omitempty"`
	Transcript        string        `db:"transcript" json:"transcript,omitempty"`
	DurationSec       int           `db:"duration_sec" json:"duration_sec"`
	Cost              float64       `db:"cost" json:"cost"`
	TerminationReason string        `db:"termination_reason" json:"termination_reason,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}
