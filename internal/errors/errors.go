package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrQueueItemNotFound is a sentinel error
type ErrQueueItemNotFound struct {
	QueueItemID int
}

func (e *ErrQueueItemNotFound) Error() string {
	return fmt.Sprintf("queue item with ID %d not found", e.QueueItemID)
}

func NewQueueItemNotFound(id int) error {
	return &ErrQueueItemNotFound{QueueItemID: id}
}
