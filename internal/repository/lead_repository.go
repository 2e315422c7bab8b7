package repository

import (
	"database/sql"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type LeadRepositoryInterface interface {
	GetByID(id int) (*model.Lead, error)
	// NextBacklog returns leads of the cohort that have no QueueItem yet, in
	// insertion order.
	NextBacklog(campaignID, cohortID, limit int) ([]*model.Lead, error)
}

type LeadRepository struct {
	DB *sql.DB
}

func (r *LeadRepository) GetByID(id int) (*model.Lead, error) {
	query := `
        SELECT id, campaign_id, cohort_id, phone, first_name, last_name
        FROM leads WHERE id=$1
    `
	var l model.Lead
	err := r.DB.QueryRow(query, id).Scan(&l.ID, &l.CampaignID, &l.CohortID, &l.Phone, &l.FirstName, &l.LastName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) NextBacklog(campaignID, cohortID, limit int) ([]*model.Lead, error) {
	query := `
        SELECT l.id, l.campaign_id, l.cohort_id, l.phone, l.first_name, l.last_name
        FROM leads l
        LEFT JOIN queue_items qi ON qi.campaign_id = l.campaign_id AND qi.lead_id = l.id
        WHERE l.campaign_id=$1 AND l.cohort_id=$2 AND qi.id IS NULL
        ORDER BY l.id ASC
        LIMIT $3
    `
	rows, err := r.DB.Query(query, campaignID, cohortID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		l := &model.Lead{}
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.CohortID, &l.Phone, &l.FirstName, &l.LastName); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
