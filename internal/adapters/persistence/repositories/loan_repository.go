package repositories

import (
	"context"
	"time"

	"libfraga/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// LoanRepository handles read access to loans and fines. Writes go
// through the transactional LoanStore only.
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// GetByID gets a loan with its book, user and fine
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		Preload("Fine").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// List lists loans with pagination, optionally filtered by status.
// OVERDUE is never stored; the filter derives it from due_date.
func (r *LoanRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	switch status {
	case "":
	case "OVERDUE":
		query = query.Where("status = ? AND due_date < ?", models.LoanStatusActive, time.Now())
	default:
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Book").
		Preload("User").
		Preload("Fine").
		Order("loan_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListByUser lists a user's full loan history, newest first
func (r *LoanRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Fine").
		Where("user_id = ?", userID).
		Order("loan_date DESC").
		Find(&loans).Error
	return loans, err
}

// ListFines lists fines, optionally filtered by paid state
func (r *LoanRepository) ListFines(ctx context.Context, paid *bool, offset, limit int) ([]*models.Fine, int64, error) {
	var fines []*models.Fine
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Fine{})
	if paid != nil {
		query = query.Where("paid = ?", *paid)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Loan").
		Preload("Loan.Book").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&fines).Error

	return fines, total, err
}
