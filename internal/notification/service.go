package notification

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"watermate-backend/config"
	"watermate-backend/internal/store"
)

// Service periodically finds users with plants due for watering and pushes
// a reminder to each of their subscriptions.
type Service struct {
	cfg        *config.Config
	store      store.Store
	workerPool *WorkerPool
}

// NewService creates and initializes a new reminder service.
func NewService(cfg *config.Config, s store.Store) *Service {
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	workerPool := NewWorkerPool(cfg.WorkerPool.Size, s.DB(), &webpushOptions)

	return &Service{
		cfg:        cfg,
		store:      s,
		workerPool: workerPool,
	}
}

// Run starts the reminder loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Reminder.Enabled {
		log.Println("Reminder service is disabled. Not starting.")
		return
	}
	log.Println("Starting reminder service...")

	// Start the worker pool
	s.workerPool.Start(ctx)

	s.RemindOnce(ctx)

	timer := time.NewTimer(s.cfg.Reminder.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder service shutting down.")
			return
		case <-timer.C:
			s.RemindOnce(ctx)
			timer.Reset(s.cfg.Reminder.Interval)
		}
	}
}

// RemindOnce performs a single reminder cycle.
func (s *Service) RemindOnce(ctx context.Context) {
	log.Println("Executing reminder cycle...")
	now := time.Now().UTC()

	reminders, err := s.store.DueReminders(ctx, now)
	if err != nil {
		log.Printf("Error fetching due reminders: %v", err)
		return
	}

	if len(reminders) == 0 {
		log.Println("Reminder cycle finished: nothing due.")
		return
	}

	log.Printf("Dispatching reminders for %d users", len(reminders))
	for _, reminder := range reminders {
		s.workerPool.Dispatch(reminder)
	}

	log.Println("Reminder cycle finished.")
}
