package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type QueueItemRepositoryInterface interface {
	GetByID(id int) (*model.QueueItem, error)

	// Create inserts a new QueueItem. Returns false when an item for the same
	// (campaign_id, lead_id) already exists; the unique constraint makes
	// concurrent warmer runs idempotent.
	Create(item *model.QueueItem) (bool, error)

	// WakeDue flips SCHEDULED items whose scheduled_for has passed to READY
	// and returns how many woke.
	WakeDue(campaignID int, now time.Time) (int, error)

	// TransitionStatus is the compare-and-swap every actor goes through:
	// the row changes only if its status still matches from.
	TransitionStatus(id int, from, to model.QueueStatus) (bool, error)

	// Schedule moves an item to SCHEDULED with a wake time, CAS on from.
	Schedule(id int, from model.QueueStatus, at time.Time) (bool, error)

	// ClaimForDispatch atomically moves a READY item to DIALING_INTENT and
	// bumps execution_count, but only while the campaign's in-flight count is
	// below maxConcurrent. Exactly one of two concurrent claims for the last
	// slot can succeed.
	ClaimForDispatch(id, campaignID, maxConcurrent int) (bool, error)

	InFlightCount(campaignID int) (int, error)
	CountByStatus(campaignID int) (map[model.QueueStatus]int, error)
	BufferDepthByCohort(campaignID int) (map[int]int, error)
	CompletedByCohort(campaignID int) (map[int]int, error)
	NextReady(campaignID, limit int) ([]*model.QueueItem, error)

	SetOutcome(id int, outcome string) error
	MarkPromoted(id int, at time.Time) error

	// Lock places the advisory soft lock. A lock held by another actor is
	// only overwritten once it is older than ttl.
	Lock(id int, actor string, ttl time.Duration) (bool, error)
	Unlock(id int, actor string) error
}

type QueueItemRepository struct {
	DB *sql.DB
}

const queueItemColumns = `id, campaign_id, lead_id, cohort_id, status, priority_score,
       execution_count, scheduled_for, locked_by, locked_at, promoted_at,
       outcome, created_at, updated_at`

// openCallStatuses inlined in SQL below: a queue item is in-flight while it is
// dialing and its latest execution record has not reached a terminal status.
const inFlightCondition = `
        qi.status = 'dialing_intent'
        AND EXISTS (
            SELECT 1 FROM execution_records er
            WHERE er.queue_item_id = qi.id
              AND er.call_status IN ('initiated', 'ringing', 'connected')
        )`

func (r *QueueItemRepository) GetByID(id int) (*model.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE id=$1`
	item, err := scanQueueItem(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func (r *QueueItemRepository) Create(item *model.QueueItem) (bool, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = model.QueueReady
	}

	query := `
        INSERT INTO queue_items
            (campaign_id, lead_id, cohort_id, status, priority_score, execution_count,
             scheduled_for, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
        ON CONFLICT (campaign_id, lead_id) DO NOTHING
        RETURNING id
    `
	err := r.DB.QueryRow(query,
		item.CampaignID, item.LeadID, item.CohortID, item.Status,
		item.PriorityScore, item.ScheduledFor, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err == sql.ErrNoRows {
		return false, nil // duplicate, another actor got there first
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *QueueItemRepository) WakeDue(campaignID int, now time.Time) (int, error) {
	query := `
        UPDATE queue_items SET status=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status=$3 AND scheduled_for IS NOT NULL AND scheduled_for <= $4
    `
	res, err := r.DB.Exec(query, model.QueueReady, campaignID, model.QueueScheduled, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *QueueItemRepository) TransitionStatus(id int, from, to model.QueueStatus) (bool, error) {
	if err := model.ValidateQueueTransition(from, to); err != nil {
		return false, err
	}
	query := `UPDATE queue_items SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *QueueItemRepository) Schedule(id int, from model.QueueStatus, at time.Time) (bool, error) {
	if err := model.ValidateQueueTransition(from, model.QueueScheduled); err != nil {
		return false, err
	}
	query := `
        UPDATE queue_items SET status=$1, scheduled_for=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
    `
	res, err := r.DB.Exec(query, model.QueueScheduled, at, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *QueueItemRepository) ClaimForDispatch(id, campaignID, maxConcurrent int) (bool, error) {
	// Single conditional update: the claim fails closed if the item is no
	// longer READY or the campaign's capacity is already booked. The count
	// covers every DIALING_INTENT row, not just those with an open execution
	// record: a freshly claimed item has no record yet but holds a slot.
	query := `
        UPDATE queue_items SET status='dialing_intent',
               execution_count=execution_count+1, updated_at=NOW()
        WHERE id=$1 AND status='ready'
          AND (SELECT COUNT(*) FROM queue_items qi
               WHERE qi.campaign_id=$2 AND qi.status='dialing_intent') < $3
    `
	res, err := r.DB.Exec(query, id, campaignID, maxConcurrent)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *QueueItemRepository) InFlightCount(campaignID int) (int, error) {
	query := `SELECT COUNT(*) FROM queue_items qi WHERE qi.campaign_id=$1 AND ` + inFlightCondition
	var n int
	err := r.DB.QueryRow(query, campaignID).Scan(&n)
	return n, err
}

func (r *QueueItemRepository) CountByStatus(campaignID int) (map[model.QueueStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM queue_items WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.QueueStatus]int{}
	for rows.Next() {
		var status model.QueueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *QueueItemRepository) BufferDepthByCohort(campaignID int) (map[int]int, error) {
	query := `
        SELECT cohort_id, COUNT(*) FROM queue_items
        WHERE campaign_id=$1 AND status IN ('ready', 'dialing_intent')
        GROUP BY cohort_id
    `
	return r.countByCohort(query, campaignID)
}

func (r *QueueItemRepository) CompletedByCohort(campaignID int) (map[int]int, error) {
	// Canonical target-progress rule: calls that reached a verdict.
	query := `
        SELECT cohort_id, COUNT(*) FROM queue_items
        WHERE campaign_id=$1 AND status IN ('intent_yes', 'intent_no', 'intent_unknown', 'consumed')
        GROUP BY cohort_id
    `
	return r.countByCohort(query, campaignID)
}

func (r *QueueItemRepository) countByCohort(query string, campaignID int) (map[int]int, error) {
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var cohortID, count int
		if err := rows.Scan(&cohortID, &count); err != nil {
			return nil, err
		}
		counts[cohortID] = count
	}
	return counts, rows.Err()
}

func (r *QueueItemRepository) NextReady(campaignID, limit int) ([]*model.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + `
        FROM queue_items
        WHERE campaign_id=$1 AND status='ready'
        ORDER BY priority_score DESC, created_at ASC, id ASC
        LIMIT $2
    `
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*model.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *QueueItemRepository) SetOutcome(id int, outcome string) error {
	query := `UPDATE queue_items SET outcome=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, outcome, id)
	return err
}

func (r *QueueItemRepository) MarkPromoted(id int, at time.Time) error {
	query := `UPDATE queue_items SET promoted_at=$1, updated_at=NOW() WHERE id=$2 AND promoted_at IS NULL`
	_, err := r.DB.Exec(query, at, id)
	return err
}

func (r *QueueItemRepository) Lock(id int, actor string, ttl time.Duration) (bool, error) {
	staleBefore := time.Now().Add(-ttl)
	query := `
        UPDATE queue_items SET locked_by=$1, locked_at=NOW()
        WHERE id=$2 AND (locked_by='' OR locked_by IS NULL OR locked_by=$1 OR locked_at < $3)
    `
	res, err := r.DB.Exec(query, actor, id, staleBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *QueueItemRepository) Unlock(id int, actor string) error {
	query := `UPDATE queue_items SET locked_by='', locked_at=NULL WHERE id=$1 AND locked_by=$2`
	_, err := r.DB.Exec(query, id, actor)
	return err
}

func scanQueueItem(row rowScanner) (*model.QueueItem, error) {
	var item model.QueueItem
	var lockedBy, outcome sql.NullString
	err := row.Scan(
		&item.ID, &item.CampaignID, &item.LeadID, &item.CohortID, &item.Status,
		&item.PriorityScore, &item.ExecutionCount, &item.ScheduledFor,
		&lockedBy, &item.LockedAt, &item.PromotedAt, &outcome,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.LockedBy = lockedBy.String
	item.Outcome = outcome.String
	return &item, nil
}

var _ QueueItemRepositoryInterface = (*QueueItemRepository)(nil)
