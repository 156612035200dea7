package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User roles
const (
	RoleAdmin     = "ADMIN"
	RoleLibrarian = "LIBRARIAN"
	RoleStudent   = "STUDENT"
)

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'STUDENT'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// CanManageLoans reports whether the user may create loans, register
// returns and collect fine payments.
func (u *User) CanManageLoans() bool {
	return u.Role == RoleAdmin || u.Role == RoleLibrarian
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog Tables
// ============================================================

// Book represents a catalogued title. Quantity is the number of owned
// copies; Available is the number of copies not currently on loan.
// Invariant: available = quantity - count(ACTIVE loans on this book),
// and 0 <= available <= quantity. Only the loan service moves Available.
type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Author    string         `gorm:"size:255;not null" json:"author"`
	ISBN      string         `gorm:"column:isbn;size:20;uniqueIndex;not null" json:"isbn"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	Available int            `gorm:"not null" json:"available"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b *Book) IsAvailable() bool {
	return b.Available > 0
}

// ============================================================
// Loan & Fine Tables
// ============================================================

// Loan statuses. OVERDUE is never stored; it is derived from DueDate
// at read time so a late loan is still ACTIVE until it is returned.
const (
	LoanStatusActive   = "ACTIVE"
	LoanStatusReturned = "RETURNED"
)

// Loan represents a single copy of a book checked out to a user.
// Loans are never deleted; they are the audit trail of the catalog.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	LoanDate   time.Time  `gorm:"not null" json:"loan_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Fine *Fine `gorm:"foreignKey:LoanID" json:"fine,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsOverdue reports whether an active loan is past its due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.DueDate)
}

// LoanResponse DTO
type LoanResponse struct {
	ID         uint       `json:"id"`
	BookID     uint       `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	BookAuthor string     `json:"book_author,omitempty"`
	UserID     uint       `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"`
	IsOverdue  bool       `json:"is_overdue"`
	Fine       *Fine      `json:"fine,omitempty"`
}

func (l *Loan) ToResponse() *LoanResponse {
	resp := &LoanResponse{
		ID:         l.ID,
		BookID:     l.BookID,
		UserID:     l.UserID,
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		Status:     l.Status,
		IsOverdue:  l.IsOverdue(time.Now()),
		Fine:       l.Fine,
	}

	if l.Book != nil {
		resp.BookTitle = l.Book.Title
		resp.BookAuthor = l.Book.Author
	}
	if l.User != nil {
		resp.UserName = l.User.Name
	}

	return resp
}

// Fine represents a late-return penalty. At most one fine exists per
// loan; the amount is fixed at creation and only Paid/PaidAt change.
type Fine struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	LoanID    uint       `gorm:"not null;uniqueIndex" json:"loan_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Amount    float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Paid      bool       `gorm:"default:false;index" json:"paid"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Loan *Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
}

func (Fine) TableName() string {
	return "fines"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&Loan{},
		&Fine{},
	)
}
