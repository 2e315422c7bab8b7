// internal/service/warmer.go
package service

import (
	"log"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/queue"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
	"github.com/unclebandit/voiceleopard-backend/internal/schedule"
)

const defaultPriorityScore = 100

// Warmer promotes backlog leads into the READY buffer and wakes SCHEDULED
// items whose callback time has arrived. Runs on a timer and after state
// transitions; every run is idempotent.
type Warmer struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	QueueRepo    repository.QueueItemRepositoryInterface
	Queue        queue.Queue
	Now          func() time.Time
}

func (w *Warmer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// WarmAll runs one warming pass over every active campaign.
func (w *Warmer) WarmAll() error {
	campaigns, err := w.CampaignRepo.ListActive()
	if err != nil {
		return err
	}

	for _, c := range campaigns {
		if _, _, err := w.WarmCampaign(c); err != nil {
			log.Println("⚠️ warming failed for campaign", c.ID, ":", err)
		}
	}
	return nil
}

// WarmCampaign wakes due items and fills each cohort's READY buffer up to its
// floor, interleaving cohorts by weight so none starves the others. Returns
// how many items woke and how many were promoted from the backlog.
func (w *Warmer) WarmCampaign(c *model.Campaign) (woken, promoted int, err error) {
	if c.Status != model.CampaignActive {
		return 0, 0, nil
	}

	now := w.now()
	inWindow, err := schedule.InWindow(now, c.ExecutionWindows, c.Timezone)
	if err != nil {
		return 0, 0, err
	}
	if !inWindow {
		return 0, 0, nil
	}

	woken, err = w.QueueRepo.WakeDue(c.ID, now)
	if err != nil {
		return woken, 0, err
	}

	promoted, err = w.fillBuffers(c)
	if err != nil {
		return woken, promoted, err
	}

	if woken+promoted > 0 && w.Queue != nil {
		if err := w.Queue.Publish(queue.TopicDispatch, c.ID); err != nil {
			log.Println("⚠️ failed to publish dispatch tick for campaign", c.ID, ":", err)
		}
	}
	return woken, promoted, nil
}

// cohortFill tracks one cohort's remaining promotion work during a pass.
type cohortFill struct {
	cohort  *model.Cohort
	backlog []*model.Lead
	need    int
	credit  int
}

func (w *Warmer) fillBuffers(c *model.Campaign) (int, error) {
	cohorts, err := w.CampaignRepo.CohortsByCampaign(c.ID)
	if err != nil {
		return 0, err
	}

	completed, err := w.QueueRepo.CompletedByCohort(c.ID)
	if err != nil {
		return 0, err
	}
	depth, err := w.QueueRepo.BufferDepthByCohort(c.ID)
	if err != nil {
		return 0, err
	}

	fills := []*cohortFill{}
	for _, cohort := range cohorts {
		if len(c.SelectedCohorts) > 0 && !c.SelectedCohorts.Contains(cohort.ID) {
			continue
		}
		// Target reached: the cohort is excluded from further promotion.
		if target := c.CohortTargets[cohort.ID]; target > 0 && completed[cohort.ID] >= target {
			continue
		}

		need := cohort.MinReadyFloor - depth[cohort.ID]
		if need <= 0 {
			continue
		}

		backlog, err := w.LeadRepo.NextBacklog(c.ID, cohort.ID, need)
		if err != nil {
			return 0, err
		}
		if len(backlog) == 0 {
			continue
		}

		fills = append(fills, &cohortFill{cohort: cohort, backlog: backlog, need: need})
	}

	return w.promoteInterleaved(c, fills)
}

// promoteInterleaved is smooth weighted round-robin across cohorts: each turn
// every cohort gains its weight in credit, the richest cohort promotes one
// lead and pays the total weight back. Higher-weight cohorts get
// proportionally more slots without ever draining one cohort first.
func (w *Warmer) promoteInterleaved(c *model.Campaign, fills []*cohortFill) (int, error) {
	promoted := 0
	for len(fills) > 0 {
		total := 0
		for _, f := range fills {
			total += weightOf(f.cohort)
		}

		var pick *cohortFill
		for _, f := range fills {
			f.credit += weightOf(f.cohort)
			if pick == nil || f.credit > pick.credit {
				pick = f
			}
		}
		pick.credit -= total

		lead := pick.backlog[0]
		pick.backlog = pick.backlog[1:]
		pick.need--

		item := &model.QueueItem{
			CampaignID:    c.ID,
			LeadID:        lead.ID,
			CohortID:      pick.cohort.ID,
			Status:        model.QueueReady,
			PriorityScore: defaultPriorityScore,
		}
		created, err := w.QueueRepo.Create(item)
		if err != nil {
			return promoted, err
		}
		if created {
			promoted++
		}
		// A duplicate means a concurrent warmer already promoted the lead;
		// the unique constraint keeps the run idempotent.

		if pick.need <= 0 || len(pick.backlog) == 0 {
			fills = removeFill(fills, pick)
		}
	}
	return promoted, nil
}

func weightOf(c *model.Cohort) int {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

func removeFill(fills []*cohortFill, target *cohortFill) []*cohortFill {
	out := fills[:0]
	for _, f := range fills {
		if f != target {
			out = append(out, f)
		}
	}
	return out
}
