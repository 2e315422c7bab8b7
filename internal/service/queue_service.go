// internal/service/queue_service.go
package service

import (
	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

// QueueService is the read-only projection the rest of the application
// consumes: status counts, the upcoming buffer, and per-lead history.
type QueueService struct {
	QueueRepo   repository.QueueItemRepositoryInterface
	ExecRepo    repository.ExecutionRepositoryInterface
	CallLogRepo repository.CallLogRepositoryInterface
}

// Stats returns queue item counts by status plus a total.
func (s *QueueService) Stats(campaignID int) (map[string]int, error) {
	counts, err := s.QueueRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	stats := map[string]int{
		"total":          0,
		"ready":          0,
		"dialing_intent": 0,
		"intent_yes":     0,
		"intent_no":      0,
		"intent_unknown": 0,
		"consumed":       0,
		"failed":         0,
		"scheduled":      0,
	}
	for status, count := range counts {
		stats[string(status)] = count
		stats["total"] += count
	}
	return stats, nil
}

// UpcomingItems returns the next items in dispatch order.
func (s *QueueService) UpcomingItems(campaignID, limit int) ([]*model.QueueItem, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.QueueRepo.NextReady(campaignID, limit)
}

// LeadHistory returns every dispatch attempt made against a lead, newest
// first.
func (s *QueueService) LeadHistory(leadID int) ([]*model.ExecutionRecord, error) {
	return s.ExecRepo.ListByLead(leadID)
}

// RecentCallLogs returns the newest call logs for a campaign.
func (s *QueueService) RecentCallLogs(campaignID, limit int) ([]*model.CallLog, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return s.CallLogRepo.ListByCampaign(campaignID, limit)
}
