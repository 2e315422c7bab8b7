// internal/model/campaign.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// ExecutionWindow is one calling window. Day is either a weekday name
// ("monday") or an absolute date ("2006-01-02"). Start and End are local
// wall-clock times in "15:04" form, inclusive on both ends.
type ExecutionWindow struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type Campaign struct {
	ID                 int            `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Status             CampaignStatus `db:"status" json:"status"`
	Timezone           string         `db:"timezone" json:"timezone"`
	MaxConcurrentCalls int            `db:"max_concurrent_calls" json:"max_concurrent_calls"`
	CallDurationSec    int            `db:"call_duration_sec" json:"call_duration_sec"`
	MaxRetries         int            `db:"max_retries" json:"max_retries"`
	SelectedCohorts    IntList        `db:"selected_cohorts" json:"selected_cohorts"`
	CohortTargets      IntMap         `db:"cohort_targets" json:"cohort_targets"`
	ExecutionWindows   WindowList     `db:"execution_windows" json:"execution_windows"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// Cohort is a named sub-segment of a campaign's leads. Weight drives the
// mixing ratio during promotion, MinReadyFloor is the READY buffer depth the
// warmer keeps filled for the cohort.
type Cohort struct {
	ID            int    `db:"id" json:"id"`
	CampaignID    int    `db:"campaign_id" json:"campaign_id"`
	Name          string `db:"name" json:"name"`
	Weight        int    `db:"weight" json:"weight"`
	MinReadyFloor int    `db:"min_ready_floor" json:"min_ready_floor"`
}

// WindowList, IntList and IntMap are JSONB column wrappers.

type WindowList []ExecutionWindow

func (w WindowList) Value() (driver.Value, error) { return json.Marshal(w) }

func (w *WindowList) Scan(src any) error { return scanJSON(src, w) }

type IntList []int

func (l IntList) Value() (driver.Value, error) { return json.Marshal(l) }

func (l *IntList) Scan(src any) error { return scanJSON(src, l) }

func (l IntList) Contains(v int) bool {
	for _, x := range l {
		if x == v {
			return true
		}
	}
	return false
}

type IntMap map[int]int

func (m IntMap) Value() (driver.Value, error) { return json.Marshal(m) }

func (m *IntMap) Scan(src any) error { return scanJSON(src, m) }

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return fmt.Errorf("cannot scan %T into JSON column", src)
}
