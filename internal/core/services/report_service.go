package services

import (
	"context"
	"time"

	"libfraga/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ReportService handles reporting operations
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// ============================================================
// Dashboard
// ============================================================

// DashboardData represents library dashboard data
type DashboardData struct {
	// Catalog Statistics
	TotalBooks  int64 `json:"total_books"`
	TotalCopies int64 `json:"total_copies"`
	CopiesOut   int64 `json:"copies_out"`

	// User Statistics
	TotalUsers    int64 `json:"total_users"`
	TotalStudents int64 `json:"total_students"`

	// Loan Statistics
	ActiveLoans   int64 `json:"active_loans"`
	OverdueLoans  int64 `json:"overdue_loans"`
	ReturnedLoans int64 `json:"returned_loans"`
	LoansToday    int64 `json:"loans_today"`

	// Fine Statistics
	UnpaidFines      int64   `json:"unpaid_fines"`
	UnpaidFineAmount float64 `json:"unpaid_fine_amount"`
	CollectedAmount  float64 `json:"collected_amount"`
}

// GetDashboard returns library dashboard data
func (s *ReportService) GetDashboard(ctx context.Context) (*DashboardData, error) {
	data := &DashboardData{}
	now := s.now()

	// Catalog counts
	s.db.WithContext(ctx).Table("books").Where("deleted_at IS NULL").Count(&data.TotalBooks)
	s.db.WithContext(ctx).Table("books").
		Where("deleted_at IS NULL").
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&data.TotalCopies)

	// User counts
	s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").Count(&data.TotalUsers)
	s.db.WithContext(ctx).Table("users").
		Where("role = ? AND deleted_at IS NULL", models.RoleStudent).
		Count(&data.TotalStudents)

	// Loan counts by status
	s.db.WithContext(ctx).Table("loans").
		Where("status = ?", models.LoanStatusActive).
		Count(&data.ActiveLoans)
	data.CopiesOut = data.ActiveLoans

	s.db.WithContext(ctx).Table("loans").
		Where("status = ? AND due_date < ?", models.LoanStatusActive, now).
		Count(&data.OverdueLoans)

	s.db.WithContext(ctx).Table("loans").
		Where("status = ?", models.LoanStatusReturned).
		Count(&data.ReturnedLoans)

	startOfDay := now.Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("loans").
		Where("loan_date >= ?", startOfDay).
		Count(&data.LoansToday)

	// Fine totals
	s.db.WithContext(ctx).Table("fines").
		Where("paid = ?", false).
		Count(&data.UnpaidFines)

	s.db.WithContext(ctx).Table("fines").
		Where("paid = ?", false).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.UnpaidFineAmount)

	s.db.WithContext(ctx).Table("fines").
		Where("paid = ?", true).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&data.CollectedAmount)

	return data, nil
}

// ============================================================
// Overdue Report
// ============================================================

// OverdueLoanRow represents one overdue loan in the report
type OverdueLoanRow struct {
	LoanID      uint      `json:"loan_id"`
	BookID      uint      `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	UserID      uint      `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	LoanDate    time.Time `json:"loan_date"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

// GetOverdueLoans lists all loans past due and not yet returned
func (s *ReportService) GetOverdueLoans(ctx context.Context) ([]OverdueLoanRow, error) {
	now := s.now()

	var rows []OverdueLoanRow
	err := s.db.WithContext(ctx).Table("loans").
		Select("loans.id AS loan_id, loans.book_id, books.title AS book_title, "+
			"loans.user_id, users.name AS user_name, users.email AS user_email, "+
			"loans.loan_date, loans.due_date").
		Joins("JOIN books ON books.id = loans.book_id").
		Joins("JOIN users ON users.id = loans.user_id").
		Where("loans.status = ? AND loans.due_date < ?", models.LoanStatusActive, now).
		Order("loans.due_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].DaysOverdue = daysOverdue(now, rows[i].DueDate)
	}

	return rows, nil
}

// ============================================================
// Popular Books
// ============================================================

// PopularBookRow represents one entry in the popularity ranking
type PopularBookRow struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	LoanCount int64  `json:"loan_count"`
}

// GetPopularBooks ranks books by all-time loan count
func (s *ReportService) GetPopularBooks(ctx context.Context, limit int) ([]PopularBookRow, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var rows []PopularBookRow
	err := s.db.WithContext(ctx).Table("loans").
		Select("books.id AS book_id, books.title, books.author, books.isbn, COUNT(loans.id) AS loan_count").
		Joins("JOIN books ON books.id = loans.book_id").
		Where("books.deleted_at IS NULL").
		Group("books.id, books.title, books.author, books.isbn").
		Order("loan_count DESC, books.title ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ============================================================
// Student Activity
// ============================================================

// StudentLoanStats represents per-student loan statistics
type StudentLoanStats struct {
	UserID       uint    `json:"user_id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	TotalLoans   int64   `json:"total_loans"`
	ActiveLoans  int64   `json:"active_loans"`
	OverdueLoans int64   `json:"overdue_loans"`
	UnpaidFines  float64 `json:"unpaid_fines"`
}

// GetStudentStats returns loan statistics for one borrower
func (s *ReportService) GetStudentStats(ctx context.Context, userID uint) (*StudentLoanStats, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	now := s.now()
	stats := &StudentLoanStats{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}

	s.db.WithContext(ctx).Table("loans").
		Where("user_id = ?", userID).
		Count(&stats.TotalLoans)

	s.db.WithContext(ctx).Table("loans").
		Where("user_id = ? AND status = ?", userID, models.LoanStatusActive).
		Count(&stats.ActiveLoans)

	s.db.WithContext(ctx).Table("loans").
		Where("user_id = ? AND status = ? AND due_date < ?", userID, models.LoanStatusActive, now).
		Count(&stats.OverdueLoans)

	s.db.WithContext(ctx).Table("fines").
		Where("user_id = ? AND paid = ?", userID, false).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.UnpaidFines)

	return stats, nil
}
