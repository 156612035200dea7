package repositories

import (
	"context"
	"time"

	"libfraga/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// LoanStore is the transactional port the loan service drives. Every
// checkout/return/payment runs inside Atomic: the callback receives a
// store bound to the transaction, and any error rolls the whole
// transaction back.
type LoanStore interface {
	// Atomic runs fn inside one storage transaction. All reads and
	// writes made through the store passed to fn commit or roll back
	// together.
	Atomic(ctx context.Context, fn func(tx LoanStore) error) error

	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindBookByID(ctx context.Context, id uint) (*models.Book, error)

	// DecrementAvailable atomically takes one copy from the pool.
	// Returns false when no copy is available; the check and the
	// decrement are a single conditional write, so two concurrent
	// checkouts cannot both take the last copy.
	DecrementAvailable(ctx context.Context, bookID uint) (bool, error)
	IncrementAvailable(ctx context.Context, bookID uint) error

	FindLoanByID(ctx context.Context, id uint) (*models.Loan, error)
	InsertLoan(ctx context.Context, loan *models.Loan) error
	MarkLoanReturned(ctx context.Context, loan *models.Loan) error

	InsertFine(ctx context.Context, fine *models.Fine) error
	FindFineByID(ctx context.Context, id uint) (*models.Fine, error)
	MarkFinePaid(ctx context.Context, fine *models.Fine) error

	CountActiveOverdueLoans(ctx context.Context, userID uint, now time.Time) (int64, error)
}

// gormLoanStore implements LoanStore on GORM/MySQL
type gormLoanStore struct {
	db *gorm.DB
}

// NewLoanStore creates a new loan store
func NewLoanStore(db *gorm.DB) LoanStore {
	return &gormLoanStore{db: db}
}

// Atomic runs fn inside a database transaction
func (s *gormLoanStore) Atomic(ctx context.Context, fn func(tx LoanStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLoanStore{db: tx})
	})
}

// FindUserByID gets a user by ID
func (s *gormLoanStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindBookByID gets a book by ID
func (s *gormLoanStore) FindBookByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := s.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// DecrementAvailable takes one copy, guarded by available > 0
func (s *gormLoanStore) DecrementAvailable(ctx context.Context, bookID uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available > 0", bookID).
		UpdateColumn("available", gorm.Expr("available - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementAvailable returns one copy to the pool
func (s *gormLoanStore) IncrementAvailable(ctx context.Context, bookID uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("available", gorm.Expr("available + 1")).Error
}

// FindLoanByID gets a loan by ID
func (s *gormLoanStore) FindLoanByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := s.db.WithContext(ctx).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// InsertLoan creates a new loan record
func (s *gormLoanStore) InsertLoan(ctx context.Context, loan *models.Loan) error {
	return s.db.WithContext(ctx).Create(loan).Error
}

// MarkLoanReturned persists the single allowed loan mutation
func (s *gormLoanStore) MarkLoanReturned(ctx context.Context, loan *models.Loan) error {
	return s.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ?", loan.ID).
		Updates(map[string]interface{}{
			"return_date": loan.ReturnDate,
			"status":      loan.Status,
		}).Error
}

// InsertFine creates a new fine record
func (s *gormLoanStore) InsertFine(ctx context.Context, fine *models.Fine) error {
	return s.db.WithContext(ctx).Create(fine).Error
}

// FindFineByID gets a fine by ID
func (s *gormLoanStore) FindFineByID(ctx context.Context, id uint) (*models.Fine, error) {
	var fine models.Fine
	if err := s.db.WithContext(ctx).First(&fine, id).Error; err != nil {
		return nil, err
	}
	return &fine, nil
}

// MarkFinePaid persists payment of a fine
func (s *gormLoanStore) MarkFinePaid(ctx context.Context, fine *models.Fine) error {
	return s.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("id = ?", fine.ID).
		Updates(map[string]interface{}{
			"paid":    fine.Paid,
			"paid_at": fine.PaidAt,
		}).Error
}

// CountActiveOverdueLoans counts a user's ACTIVE loans already past due
func (s *gormLoanStore) CountActiveOverdueLoans(ctx context.Context, userID uint, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND status = ? AND due_date < ?", userID, models.LoanStatusActive, now).
		Count(&count).Error
	return count, err
}
