package services

import (
	"context"
	"log"
	"time"

	"libfraga/internal/adapters/persistence/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs scheduled background jobs
type CronService struct {
	db   *gorm.DB
	cron *cron.Cron
}

// NewCronService creates a new cron service
func NewCronService(db *gorm.DB) *CronService {
	return &CronService{
		db:   db,
		cron: cron.New(),
	}
}

// Start registers and starts all scheduled jobs
func (s *CronService) Start() error {
	// Daily overdue sweep at 08:30
	_, err := s.cron.AddFunc("30 8 * * *", func() {
		s.sweepOverdue(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("✅ Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron service stopped")
}

// sweepOverdue logs the current overdue backlog. Overdue is never
// written to the loans table; it is derived from due_date at read
// time, so the sweep only reports.
func (s *CronService) sweepOverdue(ctx context.Context) {
	now := time.Now()

	var overdue int64
	err := s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND due_date < ?", models.LoanStatusActive, now).
		Count(&overdue).Error
	if err != nil {
		log.Printf("⚠️ Overdue sweep failed: %v", err)
		return
	}

	var borrowers int64
	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND due_date < ?", models.LoanStatusActive, now).
		Distinct("user_id").
		Count(&borrowers)

	log.Printf("📚 Overdue sweep: %d overdue loans across %d borrowers", overdue, borrowers)
}
