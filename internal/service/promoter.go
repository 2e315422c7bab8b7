// internal/service/promoter.go
package service

import (
	"time"

	appErrors "github.com/unclebandit/voiceleopard-backend/internal/errors"
	"github.com/unclebandit/voiceleopard-backend/internal/intent"
	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

const defaultFollowUpRetries = 3

// Promoter copies an agreeing lead into the human follow-up queue. Creation
// is idempotent per originating queue item; a previously closed follow-up is
// reopened instead of duplicated.
type Promoter struct {
	QueueRepo     repository.QueueItemRepositoryInterface
	ExecRepo      repository.ExecutionRepositoryInterface
	UserQueueRepo repository.UserQueueRepositoryInterface
	RetryBudget   int
	Now           func() time.Time
}

func (p *Promoter) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Promoter) retryBudget() int {
	if p.RetryBudget > 0 {
		return p.RetryBudget
	}
	return defaultFollowUpRetries
}

func (p *Promoter) PromoteIfQualified(queueItemID int) (*model.UserQueueItem, error) {
	item, err := p.QueueRepo.GetByID(queueItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, appErrors.NewQueueItemNotFound(queueItemID)
	}

	existing, err := p.UserQueueRepo.GetByQueueItem(queueItemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.ClosedAt != nil {
			if err := p.UserQueueRepo.Reopen(existing.ID); err != nil {
				return nil, err
			}
			existing.ClosedAt = nil
		}
		return existing, nil
	}

	summary := ""
	strength := string(intent.ConfidenceLow)
	rec, err := p.ExecRepo.LatestByQueueItem(queueItemID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		summary = summarize(rec.Transcript)
		verdict := intent.Classify(rec.Transcript, item.Outcome, rec.ExtractedData)
		strength = string(verdict.Confidence)
	}

	followUp := &model.UserQueueItem{
		CampaignID:     item.CampaignID,
		LeadID:         item.LeadID,
		QueueItemID:    item.ID,
		AISummary:      summary,
		IntentStrength: strength,
		RetriesLeft:    p.retryBudget(),
	}
	created, err := p.UserQueueRepo.Create(followUp)
	if err != nil {
		return nil, err
	}
	if !created {
		// Concurrent promotion won; fetch what it wrote.
		return p.UserQueueRepo.GetByQueueItem(queueItemID)
	}

	// Promoted items are skipped by later reclamation sweeps.
	if err := p.QueueRepo.MarkPromoted(item.ID, p.now()); err != nil {
		return followUp, err
	}
	return followUp, nil
}
