// internal/controller/webhook_controller.go
package controller

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/unclebandit/voiceleopard-backend/internal/service"
)

type WebhookController struct {
	Webhook *service.WebhookService
}

// HandleCallEvent ingests one provider event. It always answers 200: any
// other status makes the provider retry indefinitely, and duplicates are
// already deduplicated downstream.
func (c *WebhookController) HandleCallEvent(w http.ResponseWriter, r *http.Request) {
	var ev service.CallEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.Println("⚠️ undecodable webhook body:", err)
		writeAck(w, "ignored")
		return
	}

	if err := c.Webhook.Ingest(ev); err != nil {
		log.Println("⚠️ webhook ingest error for call", ev.ExternalCallID, ":", err)
		writeAck(w, "error")
		return
	}

	writeAck(w, "ok")
}

func writeAck(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
