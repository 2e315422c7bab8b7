package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
)

type ExecutionRepositoryInterface interface {
	Create(rec *model.ExecutionRecord) error
	GetByID(id int) (*model.ExecutionRecord, error)
	GetByExternalID(externalID string) (*model.ExecutionRecord, error)
	SetExternalID(id int, externalID string) error

	// ApplyEvent updates the record with webhook data, CAS on the stored
	// call_status so a concurrent sweep or duplicate delivery loses cleanly.
	ApplyEvent(rec *model.ExecutionRecord, expected model.CallStatus) (bool, error)

	// FailOpen marks a still-open record failed with a termination reason.
	FailOpen(id int, reason string) (bool, error)

	// ListStale returns open records in the given status last touched before
	// cutoff. Used by the reclaimer's policy sweep.
	ListStale(status model.CallStatus, cutoff time.Time) ([]*model.ExecutionRecord, error)

	ListByLead(leadID int) ([]*model.ExecutionRecord, error)
	LatestByQueueItem(queueItemID int) (*model.ExecutionRecord, error)
}

type ExecutionRepository struct {
	DB *sql.DB
}

const executionColumns = `id, queue_item_id, external_call_id, call_status, extracted_data,
       transcript, duration_sec, cost, termination_reason, created_at, updated_at`

func (r *ExecutionRepository) Create(rec *model.ExecutionRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.CallStatus == "" {
		rec.CallStatus = model.CallInitiated
	}
	if rec.ExtractedData == nil {
		rec.ExtractedData = model.ExtractedData{}
	}

	query := `
        INSERT INTO execution_records
            (queue_item_id, external_call_id, call_status, extracted_data, transcript,
             duration_sec, cost, termination_reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		rec.QueueItemID, rec.ExternalCallID, rec.CallStatus, rec.ExtractedData,
		rec.Transcript, rec.DurationSec, rec.Cost, rec.TerminationReason,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
}

func (r *ExecutionRepository) GetByID(id int) (*model.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_records WHERE id=$1`
	rec, err := scanExecution(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *ExecutionRepository) GetByExternalID(externalID string) (*model.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM execution_records WHERE external_call_id=$1`
	rec, err := scanExecution(r.DB.QueryRow(query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *ExecutionRepository) SetExternalID(id int, externalID string) error {
	query := `UPDATE execution_records SET external_call_id=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, externalID, id)
	return err
}

func (r *ExecutionRepository) ApplyEvent(rec *model.ExecutionRecord, expected model.CallStatus) (bool, error) {
	rec.UpdatedAt = time.Now()
	query := `
        UPDATE execution_records
        SET call_status=$1, extracted_data=$2, transcript=$3, duration_sec=$4,
            cost=$5, termination_reason=$6, updated_at=$7
        WHERE id=$8 AND call_status=$9
    `
	res, err := r.DB.Exec(query,
		rec.CallStatus, rec.ExtractedData, rec.Transcript, rec.DurationSec,
		rec.Cost, rec.TerminationReason, rec.UpdatedAt, rec.ID, expected,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ExecutionRepository) FailOpen(id int, reason string) (bool, error) {
	query := `
        UPDATE execution_records
        SET call_status=$1, termination_reason=$2, updated_at=NOW()
        WHERE id=$3 AND call_status IN ('initiated', 'ringing', 'connected')
    `
	res, err := r.DB.Exec(query, model.CallFailed, reason, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ExecutionRepository) ListStale(status model.CallStatus, cutoff time.Time) ([]*model.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
        FROM execution_records
        WHERE call_status=$1 AND updated_at < $2
        ORDER BY updated_at ASC
    `
	return r.list(query, status, cutoff)
}

func (r *ExecutionRepository) ListByLead(leadID int) ([]*model.ExecutionRecord, error) {
	query := `SELECT er.id, er.queue_item_id, er.external_call_id, er.call_status, er.extracted_data,
               er.transcript, er.duration_sec, er.cost, er.termination_reason, er.created_at, er.updated_at
        FROM execution_records er
        JOIN queue_items qi ON qi.id = er.queue_item_id
        WHERE qi.lead_id=$1
        ORDER BY er.created_at DESC
    `
	return r.list(query, leadID)
}

func (r *ExecutionRepository) LatestByQueueItem(queueItemID int) (*model.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
        FROM execution_records
        WHERE queue_item_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	rec, err := scanExecution(r.DB.QueryRow(query, queueItemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *ExecutionRepository) list(query string, args ...any) ([]*model.ExecutionRecord, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []*model.ExecutionRecord{}
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanExecution(row rowScanner) (*model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	var externalID, transcript, reason sql.NullString
	err := row.Scan(
		&rec.ID, &rec.QueueItemID, &externalID, &rec.CallStatus, &rec.ExtractedData,
		&transcript, &rec.DurationSec, &rec.Cost, &reason,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ExternalCallID = externalID.String
	rec.Transcript = transcript.String
	rec.TerminationReason = reason.String
	return &rec, nil
}

var _ ExecutionRepositoryInterface = (*ExecutionRepository)(nil)
