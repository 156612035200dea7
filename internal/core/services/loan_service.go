package services

import (
	"context"
	"errors"
	"time"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/adapters/persistence/repositories"
	"libfraga/internal/config"

	"gorm.io/gorm"
)

// Loan service errors
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrUserNotFoundLoan    = errors.New("user not found")
	ErrNoCopiesAvailable   = errors.New("no available copies of this book")
	ErrBorrowerOverdue     = errors.New("borrower has overdue loans")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanAlreadyReturned = errors.New("loan already returned")
	ErrFineNotFound        = errors.New("fine not found")
	ErrFineAlreadyPaid     = errors.New("fine already paid")
)

// LoanService owns the loan lifecycle: checkout, return and fine
// payment. Every operation is one atomic transaction against the
// store; a failed precondition aborts the transaction with a typed
// error and leaves no partial state.
type LoanService struct {
	store  repositories.LoanStore
	policy config.LoanConfig
	now    func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(store repositories.LoanStore, policy config.LoanConfig) *LoanService {
	return &LoanService{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// Checkout lends one copy of a book to a user. Preconditions (book
// exists, a copy is available, and - when the policy is enabled - the
// borrower has no overdue loans) are checked inside the same
// transaction that decrements the pool and inserts the loan.
func (s *LoanService) Checkout(ctx context.Context, bookID, userID uint) (*models.Loan, error) {
	var loan *models.Loan

	err := s.store.Atomic(ctx, func(tx repositories.LoanStore) error {
		now := s.now()

		if _, err := tx.FindUserByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFoundLoan
			}
			return err
		}

		if _, err := tx.FindBookByID(ctx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if s.policy.BlockOverdueBorrowers {
			overdue, err := tx.CountActiveOverdueLoans(ctx, userID, now)
			if err != nil {
				return err
			}
			if overdue > 0 {
				return ErrBorrowerOverdue
			}
		}

		// check + decrement is a single conditional write so the last
		// copy cannot be taken twice
		taken, err := tx.DecrementAvailable(ctx, bookID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		loan = &models.Loan{
			BookID:   bookID,
			UserID:   userID,
			LoanDate: now,
			DueDate:  now.AddDate(0, 0, s.policy.PeriodDays),
			Status:   models.LoanStatusActive,
		}
		return tx.InsertLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Return closes a loan. The copy always goes back to the pool; when
// the return is past the due date a fine is created for
// ceil(days late) * daily rate. Fine accrual is per-day: the flat-fee
// behaviour of earlier builds was dropped.
func (s *LoanService) Return(ctx context.Context, loanID uint) (*models.Loan, *models.Fine, error) {
	var (
		loan *models.Loan
		fine *models.Fine
	)

	err := s.store.Atomic(ctx, func(tx repositories.LoanStore) error {
		var err error
		loan, err = tx.FindLoanByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		if loan.Status != models.LoanStatusActive {
			return ErrLoanAlreadyReturned
		}

		if err := tx.IncrementAvailable(ctx, loan.BookID); err != nil {
			return err
		}

		now := s.now()
		loan.ReturnDate = &now
		loan.Status = models.LoanStatusReturned

		if late := daysOverdue(now, loan.DueDate); late > 0 {
			fine = &models.Fine{
				LoanID: loan.ID,
				UserID: loan.UserID,
				Amount: float64(late) * s.policy.DailyFineRate,
				Paid:   false,
			}
			if err := tx.InsertFine(ctx, fine); err != nil {
				return err
			}
		}

		return tx.MarkLoanReturned(ctx, loan)
	})
	if err != nil {
		return nil, nil, err
	}

	return loan, fine, nil
}

// PayFine marks a fine as paid. The amount is immutable; only the paid
// flag and timestamp change, exactly once.
func (s *LoanService) PayFine(ctx context.Context, fineID uint) (*models.Fine, error) {
	var fine *models.Fine

	err := s.store.Atomic(ctx, func(tx repositories.LoanStore) error {
		var err error
		fine, err = tx.FindFineByID(ctx, fineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFineNotFound
			}
			return err
		}

		if fine.Paid {
			return ErrFineAlreadyPaid
		}

		now := s.now()
		fine.Paid = true
		fine.PaidAt = &now
		return tx.MarkFinePaid(ctx, fine)
	})
	if err != nil {
		return nil, err
	}

	return fine, nil
}

// CountOverdue counts a user's ACTIVE loans already past their due
// date. Used by the checkout eligibility check and the overdue report.
func (s *LoanService) CountOverdue(ctx context.Context, userID uint) (int64, error) {
	return s.store.CountActiveOverdueLoans(ctx, userID, s.now())
}

// daysOverdue rounds the lateness up to whole days: any return past
// the due date, even by seconds, counts as at least one day.
func daysOverdue(returned, due time.Time) int {
	if !returned.After(due) {
		return 0
	}
	diff := returned.Sub(due)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
