// internal/handler/lock_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/voiceleopard-backend/internal/repository"
)

// LockTTL is how long a reviewer's advisory lock is honored before any other
// actor may overwrite it. Locks never block automated transitions.
const LockTTL = 15 * time.Minute

// LockHandler exposes the soft lock a human reviewer takes on a queue item so
// two reviewers don't process the same call.
type LockHandler struct {
	Repo repository.QueueItemRepositoryInterface
}

func (h *LockHandler) Lock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid queue item id", http.StatusBadRequest)
		return
	}

	var body struct {
		Actor string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Actor == "" {
		http.Error(w, "invalid body: actor required", http.StatusBadRequest)
		return
	}

	locked, err := h.Repo.Lock(id, body.Actor, LockTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !locked {
		http.Error(w, "queue item is locked by another actor", http.StatusConflict)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"queue_item_id": id,
		"locked_by":     body.Actor,
	})
}

func (h *LockHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid queue item id", http.StatusBadRequest)
		return
	}

	actor := r.URL.Query().Get("actor")
	if actor == "" {
		http.Error(w, "actor query param required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Unlock(id, actor); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
