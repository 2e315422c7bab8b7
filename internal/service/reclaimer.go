// internal/service/reclaimer.go
package service

import (
	"log"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

// ReclaimRule fails execution records stuck in Status for longer than MaxAge.
type ReclaimRule struct {
	Status model.CallStatus
	MaxAge time.Duration
}

// DefaultReclaimPolicy: short leash on calls the provider never picked up,
// a longer one on calls that were live when they went silent.
var DefaultReclaimPolicy = []ReclaimRule{
	{Status: model.CallInitiated, MaxAge: 5 * time.Minute},
	{Status: model.CallRinging, MaxAge: 30 * time.Minute},
	{Status: model.CallConnected, MaxAge: 30 * time.Minute},
}

// Reclaimer is the periodic sweep that times out stuck calls so no lead stays
// blocked behind a provider that silently dropped one.
type Reclaimer struct {
	CampaignRepo repository.CampaignRepositoryInterface
	QueueRepo    repository.QueueItemRepositoryInterface
	ExecRepo     repository.ExecutionRepositoryInterface
	Policy       []ReclaimRule
	Now          func() time.Time
}

func (r *Reclaimer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reclaimer) policy() []ReclaimRule {
	if len(r.Policy) > 0 {
		return r.Policy
	}
	return DefaultReclaimPolicy
}

// Sweep applies every rule once and returns how many records were reclaimed.
func (r *Reclaimer) Sweep() (int, error) {
	reclaimed := 0
	maxRetries := map[int]int{} // campaign id -> budget, cached per sweep

	for _, rule := range r.policy() {
		cutoff := r.now().Add(-rule.MaxAge)
		records, err := r.ExecRepo.ListStale(rule.Status, cutoff)
		if err != nil {
			return reclaimed, err
		}

		for _, rec := range records {
			failed, err := r.ExecRepo.FailOpen(rec.ID, "timeout")
			if err != nil {
				return reclaimed, err
			}
			if !failed {
				// A webhook beat us to a terminal status.
				continue
			}
			reclaimed++

			if err := r.releaseItem(rec, maxRetries); err != nil {
				log.Println("⚠️ failed to release queue item for record", rec.ID, ":", err)
			}
		}
	}
	return reclaimed, nil
}

// releaseItem unblocks the owning queue item: back to READY while retries
// remain, FAILED once exhausted.
func (r *Reclaimer) releaseItem(rec *model.ExecutionRecord, maxRetries map[int]int) error {
	item, err := r.QueueRepo.GetByID(rec.QueueItemID)
	if err != nil {
		return err
	}
	if item == nil || item.Status != model.QueueDialingIntent || item.PromotedAt != nil {
		return nil
	}

	budget, ok := maxRetries[item.CampaignID]
	if !ok {
		campaign, err := r.CampaignRepo.GetByID(item.CampaignID)
		if err != nil {
			return err
		}
		budget = maxRetriesFor(campaign)
		maxRetries[item.CampaignID] = budget
	}

	if item.ExecutionCount >= budget {
		moved, err := r.QueueRepo.TransitionStatus(item.ID, model.QueueDialingIntent, model.QueueFailed)
		if err != nil {
			return err
		}
		if moved {
			return r.QueueRepo.SetOutcome(item.ID, "timeout")
		}
		return nil
	}

	_, err = r.QueueRepo.TransitionStatus(item.ID, model.QueueDialingIntent, model.QueueReady)
	return err
}
