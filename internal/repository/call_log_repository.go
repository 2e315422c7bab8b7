package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type CallLogRepositoryInterface interface {
	// CreateIfAbsent writes the log row unless one already exists for the
	// external call id. Returns false on the duplicate path.
	CreateIfAbsent(l *model.CallLog) (bool, error)
	ListByCampaign(campaignID, limit int) ([]*model.CallLog, error)
}

type CallLogRepository struct {
	DB *sql.DB
}

func (r *CallLogRepository) CreateIfAbsent(l *model.CallLog) (bool, error) {
	l.CreatedAt = time.Now()
	query := `
        INSERT INTO call_logs
            (campaign_id, lead_id, queue_item_id, external_call_id, outcome,
             duration_sec, cost, summary, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (external_call_id) DO NOTHING
        RETURNING id
    `
	err := r.DB.QueryRow(query,
		l.CampaignID, l.LeadID, l.QueueItemID, l.ExternalCallID, l.Outcome,
		l.DurationSec, l.Cost, l.Summary, l.CreatedAt,
	).Scan(&l.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *CallLogRepository) ListByCampaign(campaignID, limit int) ([]*model.CallLog, error) {
	query := `
        SELECT id, campaign_id, lead_id, queue_item_id, external_call_id, outcome,
               duration_sec, cost, summary, created_at
        FROM call_logs WHERE campaign_id=$1
        ORDER BY created_at DESC LIMIT $2
    `
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*model.CallLog{}
	for rows.Next() {
		l := &model.CallLog{}
		if err := rows.Scan(
			&l.ID, &l.CampaignID, &l.LeadID, &l.QueueItemID, &l.ExternalCallID,
			&l.Outcome, &l.DurationSec, &l.Cost, &l.Summary, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

var _ CallLogRepositoryInterface = (*CallLogRepository)(nil)
