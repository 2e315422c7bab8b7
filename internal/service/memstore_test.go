package service_test

// In-memory repositories backing the service tests. A single mutex guards the
// whole store so the conditional updates behave like their SQL counterparts:
// claim-before-call, CAS transitions, idempotent inserts.

import (
	"sort"
	"sync"
	"time"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

var (
	_ repository.CampaignRepositoryInterface  = (*memCampaignRepo)(nil)
	_ repository.LeadRepositoryInterface      = (*memLeadRepo)(nil)
	_ repository.QueueItemRepositoryInterface = (*memQueueRepo)(nil)
	_ repository.ExecutionRepositoryInterface = (*memExecRepo)(nil)
	_ repository.CallLogRepositoryInterface   = (*memCallLogRepo)(nil)
	_ repository.UserQueueRepositoryInterface = (*memUserQueueRepo)(nil)
)

type memStore struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	cohorts   map[int][]*model.Cohort
	leads     map[int]*model.Lead
	items     map[int]*model.QueueItem
	execs     map[int]*model.ExecutionRecord
	callLogs  map[string]*model.CallLog
	followUps map[int]*model.UserQueueItem // keyed by queue item id
	nextID    int
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: map[int]*model.Campaign{},
		cohorts:   map[int][]*model.Cohort{},
		leads:     map[int]*model.Lead{},
		items:     map[int]*model.QueueItem{},
		execs:     map[int]*model.ExecutionRecord{},
		callLogs:  map[string]*model.CallLog{},
		followUps: map[int]*model.UserQueueItem{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) addCampaign(c *model.Campaign) *model.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.campaigns[c.ID] = c
	return c
}

func (s *memStore) addCohort(c *model.Cohort) *model.Cohort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	s.cohorts[c.CampaignID] = append(s.cohorts[c.CampaignID], c)
	return c
}

func (s *memStore) addLead(l *model.Lead) *model.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.id()
	}
	s.leads[l.ID] = l
	return l
}

func (s *memStore) addItem(item *model.QueueItem) *model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	if item.Status == "" {
		item.Status = model.QueueReady
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
	}
	s.items[item.ID] = item
	return item
}

func (s *memStore) addExec(rec *model.ExecutionRecord) *model.ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = s.id()
	}
	if rec.CallStatus == "" {
		rec.CallStatus = model.CallInitiated
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
		rec.UpdatedAt = rec.CreatedAt
	}
	s.execs[rec.ID] = rec
	return rec
}

func (s *memStore) itemByLead(campaignID, leadID int) *model.QueueItem {
	for _, item := range s.items {
		if item.CampaignID == campaignID && item.LeadID == leadID {
			return item
		}
	}
	return nil
}

// ---------------- campaign repo ----------------

type memCampaignRepo struct{ s *memStore }

func (r *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.campaigns[id], nil
}

func (r *memCampaignRepo) ListActive() ([]*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.s.campaigns {
		if c.Status == model.CampaignActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCampaignRepo) CohortsByCampaign(campaignID int) ([]*model.Cohort, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]*model.Cohort{}, r.s.cohorts[campaignID]...), nil
}

// ---------------- lead repo ----------------

type memLeadRepo struct{ s *memStore }

func (r *memLeadRepo) GetByID(id int) (*model.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.leads[id], nil
}

func (r *memLeadRepo) NextBacklog(campaignID, cohortID, limit int) ([]*model.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Lead{}
	for _, l := range r.s.leads {
		if l.CampaignID == campaignID && l.CohortID == cohortID && r.s.itemByLead(campaignID, l.ID) == nil {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- queue item repo ----------------

type memQueueRepo struct{ s *memStore }

func (r *memQueueRepo) GetByID(id int) (*model.QueueItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *memQueueRepo) Create(item *model.QueueItem) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.itemByLead(item.CampaignID, item.LeadID) != nil {
		return false, nil
	}
	item.ID = r.s.id()
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = model.QueueReady
	}
	copied := *item
	r.s.items[item.ID] = &copied
	return true, nil
}

func (r *memQueueRepo) WakeDue(campaignID int, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	woken := 0
	for _, item := range r.s.items {
		if item.CampaignID == campaignID && item.Status == model.QueueScheduled &&
			item.ScheduledFor != nil && !item.ScheduledFor.After(now) {
			item.Status = model.QueueReady
			item.UpdatedAt = now
			woken++
		}
	}
	return woken, nil
}

func (r *memQueueRepo) TransitionStatus(id int, from, to model.QueueStatus) (bool, error) {
	if err := model.ValidateQueueTransition(from, to); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	item.UpdatedAt = time.Now()
	return true, nil
}

func (r *memQueueRepo) Schedule(id int, from model.QueueStatus, at time.Time) (bool, error) {
	if err := model.ValidateQueueTransition(from, model.QueueScheduled); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = model.QueueScheduled
	item.ScheduledFor = &at
	item.UpdatedAt = time.Now()
	return true, nil
}

func (r *memQueueRepo) ClaimForDispatch(id, campaignID, maxConcurrent int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok || item.Status != model.QueueReady {
		return false, nil
	}
	dialing := 0
	for _, other := range r.s.items {
		if other.CampaignID == campaignID && other.Status == model.QueueDialingIntent {
			dialing++
		}
	}
	if dialing >= maxConcurrent {
		return false, nil
	}
	item.Status = model.QueueDialingIntent
	item.ExecutionCount++
	item.UpdatedAt = time.Now()
	return true, nil
}

func (r *memQueueRepo) InFlightCount(campaignID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, item := range r.s.items {
		if item.CampaignID != campaignID || item.Status != model.QueueDialingIntent {
			continue
		}
		for _, rec := range r.s.execs {
			if rec.QueueItemID == item.ID && model.IsCallOpen(rec.CallStatus) {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *memQueueRepo) CountByStatus(campaignID int) (map[model.QueueStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[model.QueueStatus]int{}
	for _, item := range r.s.items {
		if item.CampaignID == campaignID {
			counts[item.Status]++
		}
	}
	return counts, nil
}

func (r *memQueueRepo) BufferDepthByCohort(campaignID int) (map[int]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[int]int{}
	for _, item := range r.s.items {
		if item.CampaignID == campaignID &&
			(item.Status == model.QueueReady || item.Status == model.QueueDialingIntent) {
			counts[item.CohortID]++
		}
	}
	return counts, nil
}

func (r *memQueueRepo) CompletedByCohort(campaignID int) (map[int]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[int]int{}
	for _, item := range r.s.items {
		if item.CampaignID == campaignID && model.CountsTowardTarget(item.Status) {
			counts[item.CohortID]++
		}
	}
	return counts, nil
}

func (r *memQueueRepo) NextReady(campaignID, limit int) ([]*model.QueueItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.QueueItem{}
	for _, item := range r.s.items {
		if item.CampaignID == campaignID && item.Status == model.QueueReady {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memQueueRepo) SetOutcome(id int, outcome string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.items[id]; ok {
		item.Outcome = outcome
	}
	return nil
}

func (r *memQueueRepo) MarkPromoted(id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.items[id]; ok && item.PromotedAt == nil {
		item.PromotedAt = &at
	}
	return nil
}

func (r *memQueueRepo) Lock(id int, actor string, ttl time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	stale := item.LockedAt == nil || item.LockedAt.Before(now.Add(-ttl))
	if item.LockedBy != "" && item.LockedBy != actor && !stale {
		return false, nil
	}
	item.LockedBy = actor
	item.LockedAt = &now
	return true, nil
}

func (r *memQueueRepo) Unlock(id int, actor string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.items[id]; ok && item.LockedBy == actor {
		item.LockedBy = ""
		item.LockedAt = nil
	}
	return nil
}

// ---------------- execution repo ----------------

type memExecRepo struct{ s *memStore }

func (r *memExecRepo) Create(rec *model.ExecutionRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec.ID = r.s.id()
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.CallStatus == "" {
		rec.CallStatus = model.CallInitiated
	}
	copied := *rec
	r.s.execs[rec.ID] = &copied
	return nil
}

func (r *memExecRepo) GetByID(id int) (*model.ExecutionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.execs[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *memExecRepo) GetByExternalID(externalID string) (*model.ExecutionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.execs {
		if rec.ExternalCallID == externalID && externalID != "" {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memExecRepo) SetExternalID(id int, externalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.execs[id]; ok {
		rec.ExternalCallID = externalID
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memExecRepo) ApplyEvent(rec *model.ExecutionRecord, expected model.CallStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.execs[rec.ID]
	if !ok || stored.CallStatus != expected {
		return false, nil
	}
	copied := *rec
	copied.UpdatedAt = time.Now()
	r.s.execs[rec.ID] = &copied
	return true, nil
}

func (r *memExecRepo) FailOpen(id int, reason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.execs[id]
	if !ok || !model.IsCallOpen(rec.CallStatus) {
		return false, nil
	}
	rec.CallStatus = model.CallFailed
	rec.TerminationReason = reason
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (r *memExecRepo) ListStale(status model.CallStatus, cutoff time.Time) ([]*model.ExecutionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.ExecutionRecord{}
	for _, rec := range r.s.execs {
		if rec.CallStatus == status && rec.UpdatedAt.Before(cutoff) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *memExecRepo) ListByLead(leadID int) ([]*model.ExecutionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.ExecutionRecord{}
	for _, rec := range r.s.execs {
		item, ok := r.s.items[rec.QueueItemID]
		if ok && item.LeadID == leadID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memExecRepo) LatestByQueueItem(queueItemID int) (*model.ExecutionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *model.ExecutionRecord
	for _, rec := range r.s.execs {
		if rec.QueueItemID != queueItemID {
			continue
		}
		if latest == nil || rec.ID > latest.ID {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// ---------------- call log repo ----------------

type memCallLogRepo struct{ s *memStore }

func (r *memCallLogRepo) CreateIfAbsent(l *model.CallLog) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.callLogs[l.ExternalCallID]; exists {
		return false, nil
	}
	l.ID = r.s.id()
	l.CreatedAt = time.Now()
	copied := *l
	r.s.callLogs[l.ExternalCallID] = &copied
	return true, nil
}

func (r *memCallLogRepo) ListByCampaign(campaignID, limit int) ([]*model.CallLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.CallLog{}
	for _, l := range r.s.callLogs {
		if l.CampaignID == campaignID {
			copied := *l
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- user queue repo ----------------

type memUserQueueRepo struct{ s *memStore }

func (r *memUserQueueRepo) GetByQueueItem(queueItemID int) (*model.UserQueueItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.followUps[queueItemID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *memUserQueueRepo) Create(item *model.UserQueueItem) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.followUps[item.QueueItemID]; exists {
		return false, nil
	}
	item.ID = r.s.id()
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	copied := *item
	r.s.followUps[item.QueueItemID] = &copied
	return true, nil
}

func (r *memUserQueueRepo) Reopen(id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.followUps {
		if item.ID == id {
			item.ClosedAt = nil
			item.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *memUserQueueRepo) Close(id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, item := range r.s.followUps {
		if item.ID == id {
			item.ClosedAt = &now
			item.UpdatedAt = now
		}
	}
	return nil
}
