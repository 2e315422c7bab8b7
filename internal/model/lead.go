// internal/model/lead.go
package model

// Lead is reference data owned by the surrounding application. The core only
// reads it: campaign membership, cohort and the number to dial.
type Lead struct {
	ID         int    `db:"id" json:"id"`
	CampaignID int    `db:"campaign_id" json:"campaign_id"`
	CohortID   int    `db:"cohort_id" json:"cohort_id"`
	Phone      string `db:"phone" json:"phone"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
}
