package services

import (
	"context"
	"errors"

	"libfraga/internal/adapters/persistence/models"
	"libfraga/internal/adapters/persistence/repositories"
	"libfraga/internal/pkg/isbn"

	"gorm.io/gorm"
)

// Book service errors
var (
	ErrBookNotFoundSvc    = errors.New("book not found")
	ErrDuplicateISBN      = errors.New("a book with this ISBN already exists")
	ErrInvalidQuantity    = errors.New("quantity cannot be negative")
	ErrQuantityBelowLoans = errors.New("quantity cannot drop below copies currently on loan")
	ErrBookHasActiveLoans = errors.New("book has active loans")
)

// BookCatalog is the persistence port the book service drives
type BookCatalog interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	List(ctx context.Context, search string, offset, limit int) ([]*models.Book, int64, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uint) error
	CountActiveLoans(ctx context.Context, bookID uint) (int64, error)
}

var _ BookCatalog = (*repositories.BookRepository)(nil)

// BookService handles catalog business logic. It owns title, author,
// isbn and quantity; the available count belongs to the loan service.
type BookService struct {
	bookRepo BookCatalog
}

// NewBookService creates a new book service
func NewBookService(bookRepo BookCatalog) *BookService {
	return &BookService{bookRepo: bookRepo}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Author   string `json:"author" validate:"required,max=255"`
	ISBN     string `json:"isbn" validate:"omitempty,max=20"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// UpdateBookInput represents update book input
type UpdateBookInput struct {
	Title    *string `json:"title" validate:"omitempty,max=255"`
	Author   *string `json:"author" validate:"omitempty,max=255"`
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
}

// Create catalogues a new book. A missing or invalid ISBN is replaced
// by a generated checksum-valid ISBN-13; available starts at quantity.
func (s *BookService) Create(ctx context.Context, input *CreateBookInput) (*models.Book, error) {
	if input.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	code := input.ISBN
	if code == "" || !isbn.IsValid(code) {
		code = isbn.Generate13()
	}

	exists, err := s.bookRepo.ExistsByISBN(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateISBN
	}

	book := &models.Book{
		Title:     input.Title,
		Author:    input.Author,
		ISBN:      code,
		Quantity:  input.Quantity,
		Available: input.Quantity,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// GetByID gets a book by ID
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFoundSvc
		}
		return nil, err
	}
	return book, nil
}

// ListBooksInput represents list input
type ListBooksInput struct {
	Page   int
	Limit  int
	Search string
}

// ListBooksOutput represents list output
type ListBooksOutput struct {
	Books      []*models.Book `json:"books"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// List lists books with pagination and optional search
func (s *BookService) List(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit

	books, total, err := s.bookRepo.List(ctx, input.Search, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListBooksOutput{
		Books:      books,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// Update edits catalog fields. Quantity may not drop below the number
// of copies currently out, and available moves by the same delta so the
// availability invariant keeps holding.
func (s *BookService) Update(ctx context.Context, id uint, input *UpdateBookInput) (*models.Book, error) {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}

	if input.Quantity != nil && *input.Quantity != book.Quantity {
		newQuantity := *input.Quantity
		if newQuantity < 0 {
			return nil, ErrInvalidQuantity
		}

		activeLoans, err := s.bookRepo.CountActiveLoans(ctx, id)
		if err != nil {
			return nil, err
		}
		if int64(newQuantity) < activeLoans {
			return nil, ErrQuantityBelowLoans
		}

		book.Available = newQuantity - int(activeLoans)
		book.Quantity = newQuantity
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// Delete removes a book from the catalog. Refused while any ACTIVE
// loan still references it.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	activeLoans, err := s.bookRepo.CountActiveLoans(ctx, id)
	if err != nil {
		return err
	}
	if activeLoans > 0 {
		return ErrBookHasActiveLoans
	}

	return s.bookRepo.Delete(ctx, id)
}
