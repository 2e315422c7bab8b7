// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/unclebandit/voiceleopard-backend/internal/controller"
	"github.com/unclebandit/voiceleopard-backend/internal/db"
	"github.com/unclebandit/voiceleopard-backend/internal/handler"
	"github.com/unclebandit/voiceleopard-backend/internal/provider"
	"github.com/unclebandit/voiceleopard-backend/internal/queue"
	"github.com/unclebandit/voiceleopard-backend/internal/repository"
	"github.com/unclebandit/voiceleopard-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()
	q := queue.NewInMemoryQueue()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	leadRepo := &repository.LeadRepository{DB: db.DB}
	queueRepo := &repository.QueueItemRepository{DB: db.DB}
	execRepo := &repository.ExecutionRepository{DB: db.DB}
	callLogRepo := &repository.CallLogRepository{DB: db.DB}
	userQueueRepo := &repository.UserQueueRepository{DB: db.DB}

	var voice provider.Provider = provider.NewHTTPProvider(
		os.Getenv("PROVIDER_URL"),
		os.Getenv("PROVIDER_API_KEY"),
	)
	if os.Getenv("PROVIDER_URL") == "" {
		log.Println("⚠️ PROVIDER_URL not set, using mock provider")
		voice = &provider.MockProvider{FailRate: 0.1}
	}

	dispatcher := &service.Dispatcher{
		CampaignRepo: campaignRepo,
		LeadRepo:     leadRepo,
		QueueRepo:    queueRepo,
		ExecRepo:     execRepo,
		Provider:     voice,
	}

	promoter := &service.Promoter{
		QueueRepo:     queueRepo,
		ExecRepo:      execRepo,
		UserQueueRepo: userQueueRepo,
	}

	webhookService := &service.WebhookService{
		QueueRepo:   queueRepo,
		ExecRepo:    execRepo,
		CallLogRepo: callLogRepo,
		Promoter:    promoter,
	}

	queueService := &service.QueueService{
		QueueRepo:   queueRepo,
		ExecRepo:    execRepo,
		CallLogRepo: callLogRepo,
	}

	// In-process dispatch for the single-binary deployment; the scheduler +
	// worker pair takes over when AMQP is configured.
	queue.StartDispatchSubscriber(q, func(campaignID int) error {
		_, err := dispatcher.Dispatch(campaignID)
		return err
	})

	webhookController := &controller.WebhookController{Webhook: webhookService}
	queueController := &controller.QueueController{
		QueueService: queueService,
		Dispatcher:   dispatcher,
	}
	lockHandler := &handler.LockHandler{Repo: queueRepo}

	r := chi.NewRouter()

	// Provider webhook
	r.Post("/webhooks/calls", webhookController.HandleCallEvent)

	// Read surface + manual dispatch
	r.Get("/campaigns/{id}/queue/stats", queueController.GetQueueStats)
	r.Get("/campaigns/{id}/queue/next", queueController.GetUpcoming)
	r.Get("/campaigns/{id}/call-logs", queueController.GetCallLogs)
	r.Get("/leads/{id}/executions", queueController.GetLeadHistory)
	r.Post("/campaigns/{id}/dispatch", queueController.TriggerDispatch)

	// Reviewer soft locks
	r.Post("/queue-items/{id}/lock", lockHandler.Lock)
	r.Delete("/queue-items/{id}/lock", lockHandler.Unlock)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("🚀 Server running on :" + port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
