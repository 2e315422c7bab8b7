// internal/controller/queue_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/voiceleopard-backend/internal/service"
)

type QueueController struct {
	QueueService *service.QueueService
	Dispatcher   *service.Dispatcher
}

// GetQueueStats returns queue item counts by status for a campaign.
func (c *QueueController) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	stats, err := c.QueueService.Stats(campaignID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"stats":       stats,
	})
}

// GetUpcoming returns the next N leads in dispatch order.
func (c *QueueController) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := c.QueueService.UpcomingItems(campaignID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"items":       items,
	})
}

// GetLeadHistory returns every dispatch attempt for a lead.
func (c *QueueController) GetLeadHistory(w http.ResponseWriter, r *http.Request) {
	leadID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return
	}

	records, err := c.QueueService.LeadHistory(leadID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"lead_id":    leadID,
		"executions": records,
	})
}

// GetCallLogs returns recent call logs for a campaign.
func (c *QueueController) GetCallLogs(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := c.QueueService.RecentCallLogs(campaignID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"call_logs":   logs,
	})
}

// TriggerDispatch runs one dispatcher pass for a campaign.
func (c *QueueController) TriggerDispatch(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	results, err := c.Dispatcher.Dispatch(campaignID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": campaignID,
		"dispatched":  len(results),
		"results":     results,
	})
}
