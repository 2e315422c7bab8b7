// internal/service/dispatcher.go
package service

import (
	"fmt"
	"log"
	"strconv"
	"time"

	appErrors "github.com/unclebandit/voiceleopard-backend/internal/errors"
	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/provider"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

const (
	defaultMaxRetries    = 3
	defaultRetryCooldown = 2 * time.Minute
)

// DispatchResult reports what happened to one claimed queue item.
type DispatchResult struct {
	QueueItemID    int    `json:"queue_item_id"`
	ExternalCallID string `json:"external_call_id,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// Dispatcher pulls READY items up to the campaign's concurrency budget and
// starts provider calls. The slot claim is a single conditional update, so
// concurrent dispatcher runs cannot double-book capacity.
type Dispatcher struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	LeadRepo      repository.LeadRepositoryInterface
	QueueRepo     repository.QueueItemRepositoryInterface
	ExecRepo      repository.ExecutionRepositoryInterface
	Provider      provider.Provider
	RetryCooldown time.Duration
	Now           func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) cooldown() time.Duration {
	if d.RetryCooldown > 0 {
		return d.RetryCooldown
	}
	return defaultRetryCooldown
}

func (d *Dispatcher) Dispatch(campaignID int) ([]DispatchResult, error) {
	campaign, err := d.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, appErrors.NewCampaignNotFound(campaignID)
	}
	if campaign.Status != model.CampaignActive {
		return []DispatchResult{}, nil
	}

	inFlight, err := d.QueueRepo.InFlightCount(campaignID)
	if err != nil {
		return nil, err
	}
	budget := campaign.MaxConcurrentCalls - inFlight
	if budget <= 0 {
		return []DispatchResult{}, nil
	}

	items, err := d.QueueRepo.NextReady(campaignID, budget)
	if err != nil {
		return nil, err
	}

	results := []DispatchResult{}
	for _, item := range items {
		claimed, err := d.QueueRepo.ClaimForDispatch(item.ID, campaignID, campaign.MaxConcurrentCalls)
		if err != nil {
			return results, err
		}
		if !claimed {
			// Capacity filled or the item moved under us; it stays READY for
			// the next cycle.
			continue
		}
		results = append(results, d.executeCall(campaign, item))
	}
	return results, nil
}

// executeCall runs one claimed attempt end to end: record the attempt, call
// out, and either store the correlation id or roll the item back for retry.
func (d *Dispatcher) executeCall(campaign *model.Campaign, item *model.QueueItem) DispatchResult {
	attempts := item.ExecutionCount + 1 // claim already bumped the row

	rec := &model.ExecutionRecord{
		QueueItemID: item.ID,
		CallStatus:  model.CallInitiated,
	}
	if err := d.ExecRepo.Create(rec); err != nil {
		// No attempt record, no call: release the slot.
		if _, rerr := d.QueueRepo.TransitionStatus(item.ID, model.QueueDialingIntent, model.QueueReady); rerr != nil {
			log.Println("⚠️ failed to release claim on item", item.ID, ":", rerr)
		}
		return DispatchResult{QueueItemID: item.ID, Status: string(model.QueueReady), Error: err.Error()}
	}

	lead, err := d.LeadRepo.GetByID(item.LeadID)
	if err == nil && lead == nil {
		err = fmt.Errorf("lead %d not found", item.LeadID)
	}
	if err != nil {
		return d.failAttempt(campaign, item, rec, attempts, err)
	}

	resp, err := d.Provider.StartCall(provider.CallRequest{
		Phone:          lead.Phone,
		MaxDurationSec: campaign.CallDurationSec,
		Metadata: map[string]string{
			"campaign_id":   strconv.Itoa(campaign.ID),
			"lead_id":       strconv.Itoa(lead.ID),
			"queue_item_id": strconv.Itoa(item.ID),
		},
	})
	if err != nil {
		return d.failAttempt(campaign, item, rec, attempts, err)
	}

	if err := d.ExecRepo.SetExternalID(rec.ID, resp.ExternalCallID); err != nil {
		log.Println("⚠️ failed to store external call id for record", rec.ID, ":", err)
	}

	return DispatchResult{
		QueueItemID:    item.ID,
		ExternalCallID: resp.ExternalCallID,
		Status:         string(model.QueueDialingIntent),
	}
}

// failAttempt resolves a provider-call failure: the attempt record is closed,
// and the item either fails permanently or re-enters the pool after a
// cooldown proportional to the attempts already made.
func (d *Dispatcher) failAttempt(campaign *model.Campaign, item *model.QueueItem, rec *model.ExecutionRecord, attempts int, cause error) DispatchResult {
	if _, err := d.ExecRepo.FailOpen(rec.ID, "dispatch_error"); err != nil {
		log.Println("⚠️ failed to close record", rec.ID, ":", err)
	}

	if attempts >= maxRetriesFor(campaign) {
		if _, err := d.QueueRepo.TransitionStatus(item.ID, model.QueueDialingIntent, model.QueueFailed); err != nil {
			log.Println("⚠️ failed to fail item", item.ID, ":", err)
		}
		if err := d.QueueRepo.SetOutcome(item.ID, "dispatch failed: "+cause.Error()); err != nil {
			log.Println("⚠️ failed to record outcome for item", item.ID, ":", err)
		}
		return DispatchResult{QueueItemID: item.ID, Status: string(model.QueueFailed), Error: cause.Error()}
	}

	wakeAt := d.now().Add(time.Duration(attempts) * d.cooldown())
	if _, err := d.QueueRepo.Schedule(item.ID, model.QueueDialingIntent, wakeAt); err != nil {
		log.Println("⚠️ failed to schedule retry for item", item.ID, ":", err)
	}
	return DispatchResult{QueueItemID: item.ID, Status: string(model.QueueScheduled), Error: cause.Error()}
}

func maxRetriesFor(c *model.Campaign) int {
	if c == nil {
		return defaultMaxRetries
	}
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}
