package repositories

import (
	"context"

	"libfraga/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// BookRepository handles catalog data access. Availability changes are
// NOT made here; only the transactional LoanStore touches available.
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByISBN gets a book by its identifier code
func (r *BookRepository) GetByISBN(ctx context.Context, code string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("isbn = ?", code).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ExistsByISBN checks if an identifier code is already catalogued
func (r *BookRepository) ExistsByISBN(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Where("isbn = ?", code).Count(&count).Error
	return count > 0, err
}

// List lists books with pagination and optional title/author search
func (r *BookRepository) List(ctx context.Context, search string, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

// Update updates a book's catalog fields
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// Delete soft deletes a book
func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Book{}, id).Error
}

// CountActiveLoans counts ACTIVE loans referencing a book
func (r *BookRepository) CountActiveLoans(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("book_id = ? AND status = ?", bookID, models.LoanStatusActive).
		Count(&count).Error
	return count, err
}
