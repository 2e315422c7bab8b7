package repository

import (
	"database/sql"

	appErrors "github.com/unclebandit/voiceleopard-backend/internal/errors"
	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(id int) (*model.Campaign, error)
	ListActive() ([]*model.Campaign, error)
	CohortsByCampaign(campaignID int) ([]*model.Cohort, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, status, timezone, max_concurrent_calls,
       call_duration_sec, max_retries, selected_cohorts, cohort_targets,
       execution_windows, created_at, updated_at`

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, err
}

func (r *CampaignRepository) ListActive() ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status=$1 ORDER BY id ASC`
	rows, err := r.DB.Query(query, model.CampaignActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) CohortsByCampaign(campaignID int) ([]*model.Cohort, error) {
	query := `
        SELECT id, campaign_id, name, weight, min_ready_floor
        FROM cohorts WHERE campaign_id=$1 ORDER BY id ASC
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cohorts := []*model.Cohort{}
	for rows.Next() {
		c := &model.Cohort{}
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.Name, &c.Weight, &c.MinReadyFloor); err != nil {
			return nil, err
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Status, &c.Timezone, &c.MaxConcurrentCalls,
		&c.CallDurationSec, &c.MaxRetries, &c.SelectedCohorts, &c.CohortTargets,
		&c.ExecutionWindows, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
