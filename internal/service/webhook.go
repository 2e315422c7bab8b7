// internal/service/webhook.go
package service

import (
	"log"
	"strings"

	"github.com/unclebandit/voiceleopard-backend/internal/intent"
	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

// CallEvent is the provider's webhook body, keyed by the external call id.
type CallEvent struct {
	ExternalCallID string            `json:"call_id"`
	Status         string            `json:"status"`
	DurationSec    int               `json:"duration"`
	Cost           float64           `json:"cost"`
	Transcript     string            `json:"transcript"`
	ExtractedData  map[string]string `json:"extracted_data"`
}

// WebhookService drives the queue item state machine from provider events.
// Every branch resolves without error back to the handler: the provider only
// stops retrying on a 200.
type WebhookService struct {
	QueueRepo   repository.QueueItemRepositoryInterface
	ExecRepo    repository.ExecutionRepositoryInterface
	CallLogRepo repository.CallLogRepositoryInterface
	Promoter    *Promoter
}

// Ingest applies one provider event. Duplicate, stale and unknown events are
// dropped; terminal events classify intent, transition the owning item, and
// write the call log exactly once per external call id.
func (s *WebhookService) Ingest(ev CallEvent) error {
	if ev.ExternalCallID == "" {
		log.Println("⚠️ webhook event without call id, dropping")
		return nil
	}

	rec, err := s.ExecRepo.GetByExternalID(ev.ExternalCallID)
	if err != nil {
		return err
	}
	if rec == nil {
		// The record was likely reclaimed before the provider retried.
		log.Println("⚠️ webhook for unknown call id", ev.ExternalCallID, ", dropping")
		return nil
	}

	incoming := normalizeCallStatus(ev.Status)
	if model.CallStatusStale(rec.CallStatus, incoming) {
		return nil
	}

	expected := rec.CallStatus
	rec.CallStatus = incoming
	rec.DurationSec = ev.DurationSec
	rec.Cost = ev.Cost
	if ev.Transcript != "" {
		rec.Transcript = ev.Transcript
	}
	if len(ev.ExtractedData) > 0 {
		rec.ExtractedData = ev.ExtractedData
	}
	if model.IsCallTerminal(incoming) && rec.TerminationReason == "" {
		rec.TerminationReason = string(incoming)
	}

	applied, err := s.ExecRepo.ApplyEvent(rec, expected)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race against another event or the reclaimer.
		return nil
	}

	if !model.IsCallTerminal(incoming) {
		return nil
	}
	return s.finishCall(rec, incoming)
}

func (s *WebhookService) finishCall(rec *model.ExecutionRecord, status model.CallStatus) error {
	item, err := s.QueueRepo.GetByID(rec.QueueItemID)
	if err != nil {
		return err
	}
	if item == nil {
		log.Println("⚠️ execution record", rec.ID, "has no queue item, dropping")
		return nil
	}

	outcome := outcomeForStatus(status)
	verdict := intent.Classify(rec.Transcript, outcome, rec.ExtractedData)

	moved, err := s.QueueRepo.TransitionStatus(item.ID, model.QueueDialingIntent, verdictStatus(verdict))
	if err != nil {
		log.Println("⚠️ transition rejected for item", item.ID, ":", err)
	} else if moved {
		if err := s.QueueRepo.SetOutcome(item.ID, outcome); err != nil {
			log.Println("⚠️ failed to record outcome for item", item.ID, ":", err)
		}
	}

	created, err := s.CallLogRepo.CreateIfAbsent(&model.CallLog{
		CampaignID:     item.CampaignID,
		LeadID:         item.LeadID,
		QueueItemID:    item.ID,
		ExternalCallID: rec.ExternalCallID,
		Outcome:        outcome,
		DurationSec:    rec.DurationSec,
		Cost:           rec.Cost,
		Summary:        summarize(rec.Transcript),
	})
	if err != nil {
		return err
	}
	if !created {
		// Duplicate terminal delivery already logged this call.
		return nil
	}

	if verdict.Agreed && moved && s.Promoter != nil {
		if _, err := s.Promoter.PromoteIfQualified(item.ID); err != nil {
			log.Println("⚠️ promotion failed for item", item.ID, ":", err)
		}
	}
	return nil
}

func verdictStatus(v intent.Verdict) model.QueueStatus {
	switch v.Status {
	case intent.StatusYes:
		return model.QueueIntentYes
	case intent.StatusNo:
		return model.QueueIntentNo
	}
	return model.QueueIntentUnknown
}

func normalizeCallStatus(raw string) model.CallStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	if s == "no_answer" || s == "noanswer" {
		return model.CallNoAnswer
	}
	return model.CallStatus(s)
}

func outcomeForStatus(s model.CallStatus) string {
	switch s {
	case model.CallCompleted:
		return "completed"
	case model.CallVoicemail:
		return "voicemail"
	case model.CallNoAnswer:
		return "no_answer"
	case model.CallBusy:
		return "busy"
	}
	return "failed"
}

const summaryLimit = 200

func summarize(transcript string) string {
	t := strings.TrimSpace(transcript)
	if len(t) <= summaryLimit {
		return t
	}
	return t[:summaryLimit] + "…"
}
