package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/voiceleopard-backend/internal/model"
	"github.com/unclebandit/voiceleopard-backend/internal/service"
)

// newReclaimer pins "now" into the future so records seeded with wall-clock
// timestamps look stale.
func newReclaimer(s *memStore, ahead time.Duration) *service.Reclaimer {
	now := time.Now().Add(ahead)
	return &service.Reclaimer{
		CampaignRepo: &memCampaignRepo{s},
		QueueRepo:    &memQueueRepo{s},
		ExecRepo:     &memExecRepo{s},
		Now:          func() time.Time { return now },
	}
}

func TestReclaimerFailsStuckInitiatedCall(t *testing.T) {
	s := newMemStore()
	_, item, rec := seedDialingCall(s, "call-1")
	rec.CallStatus = model.CallInitiated

	reclaimed, err := newReclaimer(s, 10*time.Minute).Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	assert.Equal(t, model.CallFailed, s.execs[rec.ID].CallStatus)
	assert.Equal(t, "timeout", s.execs[rec.ID].TerminationReason)
	assert.Equal(t, model.QueueReady, s.items[item.ID].Status, "retries remain, item re-enters the pool")
}

func TestReclaimerLeavesFreshCallsAlone(t *testing.T) {
	s := newMemStore()
	_, item, rec := seedDialingCall(s, "call-1")
	rec.CallStatus = model.CallInitiated

	reclaimed, err := newReclaimer(s, time.Minute).Sweep()
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
	assert.Equal(t, model.CallInitiated, s.execs[rec.ID].CallStatus)
	assert.Equal(t, model.QueueDialingIntent, s.items[item.ID].Status)
}

func TestReclaimerConnectedCallsGetLongerLeash(t *testing.T) {
	s := newMemStore()
	_, _, rec := seedDialingCall(s, "call-1")
	rec.CallStatus = model.CallConnected

	reclaimed, err := newReclaimer(s, 10*time.Minute).Sweep()
	require.NoError(t, err)
	assert.Zero(t, reclaimed, "connected calls time out at thirty minutes, not five")

	reclaimed, err = newReclaimer(s, time.Hour).Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)
}

func TestReclaimerFailsItemWhenRetriesExhausted(t *testing.T) {
	s := newMemStore()
	c, item, rec := seedDialingCall(s, "call-1")
	c.MaxRetries = 3
	item.ExecutionCount = 3
	rec.CallStatus = model.CallInitiated

	_, err := newReclaimer(s, 10*time.Minute).Sweep()
	require.NoError(t, err)

	assert.Equal(t, model.QueueFailed, s.items[item.ID].Status)
	assert.Equal(t, "timeout", s.items[item.ID].Outcome)
}

func TestReclaimerSkipsPromotedItems(t *testing.T) {
	s := newMemStore()
	_, item, rec := seedDialingCall(s, "call-1")
	rec.CallStatus = model.CallInitiated
	promotedAt := time.Now()
	item.PromotedAt = &promotedAt

	reclaimed, err := newReclaimer(s, 10*time.Minute).Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed, "the record still times out")
	assert.Equal(t, model.QueueDialingIntent, s.items[item.ID].Status, "the item is left for its owner")
}

func TestReclaimerIgnoresTerminalRecords(t *testing.T) {
	s := newMemStore()
	_, _, rec := seedDialingCall(s, "call-1")
	rec.CallStatus = model.CallCompleted

	reclaimed, err := newReclaimer(s, time.Hour).Sweep()
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
	assert.Equal(t, model.CallCompleted, s.execs[rec.ID].CallStatus)
}
