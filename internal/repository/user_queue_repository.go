package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type UserQueueRepositoryInterface interface {
	GetByQueueItem(queueItemID int) (*model.UserQueueItem, error)
	// Create inserts the follow-up item; returns false if one already exists
	// for the originating queue item.
	Create(item *model.UserQueueItem) (bool, error)
	Reopen(id int) error
	Close(id int) error
}

type UserQueueRepository struct {
	DB *sql.DB
}

const userQueueColumns = `id, campaign_id, lead_id, queue_item_id, ai_summary, intent_strength,
       confirmation_slot, retries_left, closed_at, locked_by, locked_at, created_at, updated_at`

func (r *UserQueueRepository) GetByQueueItem(queueItemID int) (*model.UserQueueItem, error) {
	query := `SELECT ` + userQueueColumns + ` FROM user_queue_items WHERE queue_item_id=$1`
	var item model.UserQueueItem
	var lockedBy sql.NullString
	err := r.DB.QueryRow(query, queueItemID).Scan(
		&item.ID, &item.CampaignID, &item.LeadID, &item.QueueItemID,
		&item.AISummary, &item.IntentStrength, &item.ConfirmationSlot,
		&item.RetriesLeft, &item.ClosedAt, &lockedBy, &item.LockedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	item.LockedBy = lockedBy.String
	return &item, nil
}

func (r *UserQueueRepository) Create(item *model.UserQueueItem) (bool, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
        INSERT INTO user_queue_items
            (campaign_id, lead_id, queue_item_id, ai_summary, intent_strength,
             confirmation_slot, retries_left, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (queue_item_id) DO NOTHING
        RETURNING id
    `
	err := r.DB.QueryRow(query,
		item.CampaignID, item.LeadID, item.QueueItemID, item.AISummary,
		item.IntentStrength, item.ConfirmationSlot, item.RetriesLeft,
		item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserQueueRepository) Reopen(id int) error {
	query := `UPDATE user_queue_items SET closed_at=NULL, updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *UserQueueRepository) Close(id int) error {
	query := `UPDATE user_queue_items SET closed_at=NOW(), updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

var _ UserQueueRepositoryInterface = (*UserQueueRepository)(nil)
